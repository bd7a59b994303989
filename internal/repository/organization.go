package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/domain"
)

// OrganizationRepository интерфейс доступа к записям организаций.
// При обработке вебхуков запись ищется по идентификаторам платежной
// системы (customer/subscription), потому что входящее событие несет
// только их, а не первичный ключ тенанта.
type OrganizationRepository interface {
	// GetByID возвращает организацию по первичному ключу
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)

	// GetByStripeCustomerID возвращает организацию по ID клиента Stripe
	GetByStripeCustomerID(ctx context.Context, customerID string) (domain.Organization, error)

	// GetByStripeSubscriptionID возвращает организацию по ID подписки Stripe
	GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (domain.Organization, error)

	// Create создает новую организацию
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)

	// Update применяет частичное обновление одной атомарной записью строки
	Update(ctx context.Context, id uuid.UUID, patch domain.OrganizationPatch) error
}

// WebhookEventRepository интерфейс журнала вебхук-событий
type WebhookEventRepository interface {
	// GetByExternalID возвращает событие по ID в платежной системе
	GetByExternalID(ctx context.Context, externalID string) (domain.WebhookEvent, error)

	// Create создает журнальную запись о событии
	Create(ctx context.Context, event domain.WebhookEvent) (domain.WebhookEvent, error)

	// UpdateStatus обновляет исход обработки существующей записи
	UpdateStatus(ctx context.Context, externalID string, status domain.WebhookEventStatus, errorMessage string, processedAt time.Time) error

	// List возвращает последние события (новые в начале)
	List(ctx context.Context, limit, offset int) ([]domain.WebhookEvent, error)
}
