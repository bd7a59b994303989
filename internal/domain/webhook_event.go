package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEventStatus статус обработки события
type WebhookEventStatus string

const (
	// WebhookEventStatusProcessed событие привело к изменению записи
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	// WebhookEventStatusSkipped событие обработано без изменений (no-op)
	WebhookEventStatusSkipped WebhookEventStatus = "skipped"
	// WebhookEventStatusFailed обработка завершилась ошибкой
	WebhookEventStatusFailed WebhookEventStatus = "failed"
)

// WebhookEvent журнальная запись о полученном вебхук-событии.
// ExternalID уникален: повторная доставка того же события
// обнаруживается по нему и подтверждается без обработки.
type WebhookEvent struct {
	ID           uuid.UUID          `json:"id"`
	ExternalID   string             `json:"external_id"` // ID события в платежной системе
	Type         string             `json:"type"`
	Status       WebhookEventStatus `json:"status"`
	ResourceID   string             `json:"resource_id"` // ID ресурса, к которому относится событие
	ErrorMessage string             `json:"error_message,omitempty"`
	ReceivedAt   time.Time          `json:"received_at"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty"`
}
