package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// CachedOrganizationRepository репозиторий организаций со сквозным чтением
// через Redis. Кешируется только чтение по первичному ключу - это горячий
// путь edge-миддлвари; поиск по идентификаторам Stripe идет мимо кеша,
// потому что вебхуки редки по сравнению с запросами страниц.
// Любая запись инвалидирует кеш до обращения к базе.
type CachedOrganizationRepository struct {
	inner OrganizationRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedOrganizationRepository создает кеширующую обертку над репозиторием организаций
func NewCachedOrganizationRepository(inner OrganizationRepository, cache *RedisCacheRepository, log *logger.Logger) *CachedOrganizationRepository {
	return &CachedOrganizationRepository{
		inner: inner,
		cache: cache,
		log:   log,
	}
}

// GetByID возвращает организацию, по возможности из кеша
func (r *CachedOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	cached, err := r.cache.GetCachedOrganization(ctx, id.String())
	if err != nil {
		// Ошибка кеша не фатальна: падаем на базу
		r.log.Warnw("Cache read failed, falling back to database", "error", err, "organizationID", id)
	}
	if cached != nil {
		return *cached, nil
	}

	org, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return domain.Organization{}, err
	}

	if err := r.cache.CacheOrganization(ctx, org); err != nil {
		r.log.Warnw("Failed to populate organization cache", "error", err, "organizationID", id)
	}

	return org, nil
}

// GetByStripeCustomerID возвращает организацию по ID клиента Stripe (мимо кеша)
func (r *CachedOrganizationRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (domain.Organization, error) {
	return r.inner.GetByStripeCustomerID(ctx, customerID)
}

// GetByStripeSubscriptionID возвращает организацию по ID подписки Stripe (мимо кеша)
func (r *CachedOrganizationRepository) GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (domain.Organization, error) {
	return r.inner.GetByStripeSubscriptionID(ctx, subscriptionID)
}

// Create создает новую организацию
func (r *CachedOrganizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	return r.inner.Create(ctx, org)
}

// Update применяет частичное обновление и инвалидирует кеш.
// Инвалидация идет до записи: при сбое между записью и инвалидацией
// кеш не останется со старым снимком дольше своего TTL.
func (r *CachedOrganizationRepository) Update(ctx context.Context, id uuid.UUID, patch domain.OrganizationPatch) error {
	if err := r.cache.InvalidateOrganization(ctx, id.String()); err != nil {
		r.log.Warnw("Failed to invalidate cache before update", "error", err, "organizationID", id)
	}

	return r.inner.Update(ctx, id, patch)
}
