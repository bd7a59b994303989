package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tintcrm/billing-service/internal/api/rest"
	"github.com/tintcrm/billing-service/internal/api/rest/handlers"
	"github.com/tintcrm/billing-service/internal/api/rest/middleware"
	"github.com/tintcrm/billing-service/internal/cache"
	"github.com/tintcrm/billing-service/internal/config"
	"github.com/tintcrm/billing-service/internal/domain"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/kafka"
	"github.com/tintcrm/billing-service/internal/metrics"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/internal/repository/postgres"
	"github.com/tintcrm/billing-service/internal/service"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// App контейнер зависимостей сервиса
type App struct {
	Config *config.Config
	Log    *logger.Logger
	Server *rest.Server

	closers []func() error
}

// New собирает граф зависимостей по конфигурации
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	billingMetrics := metrics.NewBillingMetrics(registry)

	pool, err := postgres.NewConnection(ctx, cfg.Database.URL, log)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})

	var orgs repository.OrganizationRepository = postgres.NewPostgresOrganizationRepository(pool, log)
	events := postgres.NewPostgresWebhookEventRepository(pool, log)

	if cfg.Redis.Enabled {
		redisCache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, redisCache.Close)
		orgs = repository.NewCachedOrganizationRepository(orgs, redisCache, log)
	}

	var publisher service.EntitlementPublisher
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopics(cfg.Kafka.Brokers, log, cfg.Kafka.EntitlementTopic); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EntitlementTopic, log)
		a.closers = append(a.closers, producer.Close)
		publisher = producer
	}

	gateway := stripeintegration.NewGateway(cfg.Stripe.APIKey, log)
	verifier := stripeintegration.NewWebhookVerifier(cfg.Stripe.WebhookSecret, log)
	catalog := cache.New[[]domain.Product](cfg.Stripe.CatalogCacheTTL, cache.SystemClock())

	entitlements := service.NewEntitlementService(orgs, events, publisher, billingMetrics, log)
	provisioning := service.NewProvisioningService(orgs, gateway, log)
	checkout := service.NewCheckoutService(orgs, gateway, provisioning, catalog, billingMetrics, service.CheckoutConfig{
		SuccessURL:       cfg.Stripe.SuccessURL,
		CancelURL:        cfg.Stripe.CancelURL,
		PortalReturnURL:  cfg.Stripe.PortalReturnURL,
		DefaultTrialDays: cfg.Stripe.DefaultTrialDays,
	}, log)
	organizations := service.NewOrganizationService(orgs, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := rest.NewRouter(rest.RouterDeps{
		Logger:        log,
		Registry:      registry,
		Metrics:       billingMetrics,
		Organizations: orgs,
		Validator:     middleware.NewTokenValidator(cfg.Auth.JWTSecret),
		Webhooks:      handlers.NewWebhookHandler(verifier, entitlements, log),
		Billing:       handlers.NewBillingHandler(checkout, log),
		OrgHandler:    handlers.NewOrganizationHandler(organizations, log),
		HealthHandler: handlers.NewHealthHandler(),
	})

	a.Server = rest.NewServer(cfg.Server, router, log)

	return a, nil
}

// Close освобождает ресурсы в обратном порядке создания
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warnw("Failed to close resource", "error", err)
		}
	}
}
