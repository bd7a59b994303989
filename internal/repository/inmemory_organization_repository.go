package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// InMemoryOrganizationRepository реализация репозитория организаций в памяти.
// Используется в тестах и при локальной разработке без базы.
type InMemoryOrganizationRepository struct {
	organizations map[uuid.UUID]domain.Organization
	mutex         sync.RWMutex
	log           *logger.Logger
}

// NewInMemoryOrganizationRepository создает новый репозиторий организаций в памяти
func NewInMemoryOrganizationRepository(log *logger.Logger) *InMemoryOrganizationRepository {
	return &InMemoryOrganizationRepository{
		organizations: make(map[uuid.UUID]domain.Organization),
		log:           log,
	}
}

// GetByID возвращает организацию по первичному ключу
func (r *InMemoryOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	org, exists := r.organizations[id]
	if !exists {
		return domain.Organization{}, ErrNotFound
	}

	return org, nil
}

// GetByStripeCustomerID возвращает организацию по ID клиента Stripe
func (r *InMemoryOrganizationRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (domain.Organization, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, org := range r.organizations {
		if org.StripeCustomerID != nil && *org.StripeCustomerID == customerID {
			return org, nil
		}
	}

	return domain.Organization{}, ErrNotFound
}

// GetByStripeSubscriptionID возвращает организацию по ID подписки Stripe
func (r *InMemoryOrganizationRepository) GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (domain.Organization, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, org := range r.organizations {
		if org.StripeSubscriptionID != nil && *org.StripeSubscriptionID == subscriptionID {
			return org, nil
		}
	}

	return domain.Organization{}, ErrNotFound
}

// Create создает новую организацию
func (r *InMemoryOrganizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.organizations {
		if existing.Subdomain == org.Subdomain {
			return domain.Organization{}, ErrDuplicate
		}
	}

	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt

	r.organizations[org.ID] = org

	return org, nil
}

// Update применяет частичное обновление к записи организации
func (r *InMemoryOrganizationRepository) Update(ctx context.Context, id uuid.UUID, patch domain.OrganizationPatch) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	org, exists := r.organizations[id]
	if !exists {
		return ErrNotFound
	}

	if patch.StripeCustomerID != nil {
		org.StripeCustomerID = patch.StripeCustomerID
	}
	if patch.StripeSubscriptionID != nil {
		org.StripeSubscriptionID = patch.StripeSubscriptionID
	}
	if patch.SubscriptionStatus != nil {
		org.SubscriptionStatus = *patch.SubscriptionStatus
	}
	if patch.SubscriptionPlan != nil {
		org.SubscriptionPlan = *patch.SubscriptionPlan
	}
	if patch.IsActive != nil {
		org.IsActive = *patch.IsActive
	}
	if patch.CancelAtPeriodEnd != nil {
		org.CancelAtPeriodEnd = *patch.CancelAtPeriodEnd
	}
	if patch.TrialEndsAt != nil {
		org.TrialEndsAt = patch.TrialEndsAt
	}
	if patch.ClearCurrentPeriodEnd {
		org.CurrentPeriodEnd = nil
	} else if patch.CurrentPeriodEnd != nil {
		org.CurrentPeriodEnd = patch.CurrentPeriodEnd
	}
	org.UpdatedAt = time.Now()

	r.organizations[id] = org

	return nil
}
