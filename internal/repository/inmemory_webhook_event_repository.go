package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// InMemoryWebhookEventRepository реализация журнала вебхук-событий в памяти
type InMemoryWebhookEventRepository struct {
	events map[string]domain.WebhookEvent // ключ - external_id
	mutex  sync.RWMutex
	log    *logger.Logger
}

// NewInMemoryWebhookEventRepository создает новый журнал вебхук-событий в памяти
func NewInMemoryWebhookEventRepository(log *logger.Logger) *InMemoryWebhookEventRepository {
	return &InMemoryWebhookEventRepository{
		events: make(map[string]domain.WebhookEvent),
		log:    log,
	}
}

// GetByExternalID возвращает событие по ID в платежной системе
func (r *InMemoryWebhookEventRepository) GetByExternalID(ctx context.Context, externalID string) (domain.WebhookEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	event, exists := r.events[externalID]
	if !exists {
		return domain.WebhookEvent{}, ErrNotFound
	}

	return event, nil
}

// Create создает журнальную запись о событии
func (r *InMemoryWebhookEventRepository) Create(ctx context.Context, event domain.WebhookEvent) (domain.WebhookEvent, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.events[event.ExternalID]; exists {
		return domain.WebhookEvent{}, ErrDuplicate
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	r.events[event.ExternalID] = event

	return event, nil
}

// UpdateStatus обновляет исход обработки существующей записи
func (r *InMemoryWebhookEventRepository) UpdateStatus(ctx context.Context, externalID string, status domain.WebhookEventStatus, errorMessage string, processedAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	event, exists := r.events[externalID]
	if !exists {
		return ErrNotFound
	}

	event.Status = status
	event.ErrorMessage = errorMessage
	event.ProcessedAt = &processedAt
	r.events[externalID] = event

	return nil
}

// List возвращает последние события (новые в начале)
func (r *InMemoryWebhookEventRepository) List(ctx context.Context, limit, offset int) ([]domain.WebhookEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	events := make([]domain.WebhookEvent, 0, len(r.events))
	for _, event := range r.events {
		events = append(events, event)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ReceivedAt.After(events[j].ReceivedAt)
	})

	if offset >= len(events) {
		return []domain.WebhookEvent{}, nil
	}

	end := offset + limit
	if end > len(events) {
		end = len(events)
	}

	return events[offset:end], nil
}
