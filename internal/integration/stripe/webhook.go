package stripe

import (
	"fmt"

	"github.com/stripe/stripe-go/v78/webhook"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// IncomingEvent проверенное и разобранное вебхук-событие
type IncomingEvent struct {
	// ID уникальный идентификатор события у провайдера (ключ дедупликации)
	ID string
	// Type исходный тип события
	Type string
	// ResourceID идентификатор ресурса, к которому относится событие
	ResourceID string
	// Event разобранное биллинговое событие для реконсилера
	Event domain.BillingEvent
}

// SignatureVerifier проверяет подпись вебхука и разбирает полезную нагрузку
type SignatureVerifier interface {
	VerifyAndParse(payload []byte, signatureHeader string) (IncomingEvent, error)
}

// WebhookVerifier реализует проверку подписи через SDK Stripe
type WebhookVerifier struct {
	secret string
	log    *logger.Logger
}

// NewWebhookVerifier создает верификатор с секретом эндпоинта
func NewWebhookVerifier(secret string, log *logger.Logger) *WebhookVerifier {
	return &WebhookVerifier{
		secret: secret,
		log:    log,
	}
}

// VerifyAndParse проверяет подпись тела запроса и конвертирует событие
// в доменное представление. Тело берется в сыром виде: любая
// пересериализация до проверки подписи ее сломает.
func (v *WebhookVerifier) VerifyAndParse(payload []byte, signatureHeader string) (IncomingEvent, error) {
	if signatureHeader == "" {
		return IncomingEvent{}, fmt.Errorf("%w: missing signature header", domain.ErrWebhookValidationFailed)
	}

	event, err := webhook.ConstructEvent(payload, signatureHeader, v.secret)
	if err != nil {
		v.log.Warnw("Webhook signature verification failed", "error", err)
		return IncomingEvent{}, fmt.Errorf("%w: %v", domain.ErrWebhookValidationFailed, err)
	}

	billingEvent, err := MapEvent(event)
	if err != nil {
		v.log.Errorw("Failed to parse webhook payload", "eventID", event.ID, "type", string(event.Type), "error", err)
		return IncomingEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	return IncomingEvent{
		ID:         event.ID,
		Type:       string(event.Type),
		ResourceID: resourceID(billingEvent),
		Event:      billingEvent,
	}, nil
}

// resourceID извлекает идентификатор ресурса для журнала событий
func resourceID(event domain.BillingEvent) string {
	switch e := event.(type) {
	case domain.SubscriptionChanged:
		return e.SubscriptionID
	case domain.SubscriptionDeleted:
		return e.SubscriptionID
	case domain.InvoicePaymentSucceeded:
		return e.SubscriptionID
	case domain.InvoicePaymentFailed:
		return e.SubscriptionID
	default:
		return ""
	}
}
