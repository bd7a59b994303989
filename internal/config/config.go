package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config конфигурация сервиса
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// AppConfig общие параметры приложения
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig параметры HTTP-сервера
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig параметры подключения к PostgreSQL
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig параметры подключения к Redis
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig параметры подключения к Kafka
type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	EntitlementTopic string   `mapstructure:"entitlement_topic"`
}

// StripeConfig параметры интеграции со Stripe
type StripeConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	WebhookSecret    string        `mapstructure:"webhook_secret"`
	SuccessURL       string        `mapstructure:"success_url"`
	CancelURL        string        `mapstructure:"cancel_url"`
	PortalReturnURL  string        `mapstructure:"portal_return_url"`
	DefaultTrialDays int64         `mapstructure:"default_trial_days"`
	CatalogCacheTTL  time.Duration `mapstructure:"catalog_cache_ttl"`
}

// AuthConfig параметры проверки сессионных токенов
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load читает конфигурацию из файла и переменных окружения.
// Переменные окружения имеют приоритет: STRIPE_API_KEY перекрывает stripe.api_key.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Файл опционален: конфигурация может прийти целиком из окружения
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "billing-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.entitlement_topic", "billing.entitlement.changed")

	v.SetDefault("stripe.default_trial_days", 14)
	v.SetDefault("stripe.catalog_cache_ttl", 5*time.Minute)
	v.SetDefault("stripe.success_url", "http://localhost:3000/billing?success=true")
	v.SetDefault("stripe.cancel_url", "http://localhost:3000/subscription-setup")
	v.SetDefault("stripe.portal_return_url", "http://localhost:3000/billing")
}

// validate проверяет обязательные параметры
func (c *Config) validate() error {
	var missing []string

	if c.Database.URL == "" {
		missing = append(missing, "database.url")
	}
	if c.Stripe.APIKey == "" {
		missing = append(missing, "stripe.api_key")
	}
	if c.Stripe.WebhookSecret == "" {
		missing = append(missing, "stripe.webhook_secret")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "auth.jwt_secret")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	return nil
}
