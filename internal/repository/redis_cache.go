package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/pkg/logger"
)

const (
	// Префикс ключей для снимков организаций
	organizationKeyPrefix = "organization:"

	// TTL для кэша: снимок читается на каждый защищенный запрос,
	// инвалидация при записи делает длинный TTL безопасным
	defaultCacheTTL = 5 * time.Minute
)

// RedisCacheRepository кеширует снимки организаций в Redis
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CacheOrganization кеширует снимок организации
func (r *RedisCacheRepository) CacheOrganization(ctx context.Context, org domain.Organization) error {
	key := organizationKeyPrefix + org.ID.String()

	data, err := json.Marshal(org)
	if err != nil {
		return fmt.Errorf("failed to marshal organization: %w", err)
	}

	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		r.log.Errorw("Failed to cache organization in Redis", "error", err, "organizationID", org.ID)
		return fmt.Errorf("failed to cache organization: %w", err)
	}

	r.log.Debugw("Organization cached", "organizationID", org.ID)
	return nil
}

// GetCachedOrganization получает снимок организации из кеша.
// Возвращает nil без ошибки при промахе кеша.
func (r *RedisCacheRepository) GetCachedOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	key := organizationKeyPrefix + id

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.log.Errorw("Error getting organization from Redis", "error", err, "organizationID", id)
		return nil, fmt.Errorf("failed to get organization from cache: %w", err)
	}

	var org domain.Organization
	if err := json.Unmarshal(data, &org); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached organization: %w", err)
	}

	return &org, nil
}

// InvalidateOrganization удаляет снимок организации из кеша
func (r *RedisCacheRepository) InvalidateOrganization(ctx context.Context, id string) error {
	key := organizationKeyPrefix + id

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorw("Failed to invalidate cached organization", "error", err, "organizationID", id)
		return fmt.Errorf("failed to invalidate cached organization: %w", err)
	}

	return nil
}
