package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// PostgresWebhookEventRepository журнал вебхук-событий в PostgreSQL
type PostgresWebhookEventRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresWebhookEventRepository создает новый журнал вебхук-событий через PostgreSQL
func NewPostgresWebhookEventRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresWebhookEventRepository {
	return &PostgresWebhookEventRepository{
		db:  db,
		log: log,
	}
}

// GetByExternalID возвращает событие по ID в платежной системе
func (r *PostgresWebhookEventRepository) GetByExternalID(ctx context.Context, externalID string) (domain.WebhookEvent, error) {
	query := `
		SELECT id, external_id, type, status, resource_id, error_message, received_at, processed_at
		FROM webhook_events
		WHERE external_id = $1`

	var event domain.WebhookEvent
	var status string

	err := r.db.QueryRow(ctx, query, externalID).Scan(
		&event.ID,
		&event.ExternalID,
		&event.Type,
		&status,
		&event.ResourceID,
		&event.ErrorMessage,
		&event.ReceivedAt,
		&event.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WebhookEvent{}, repository.ErrNotFound
		}
		return domain.WebhookEvent{}, fmt.Errorf("failed to get webhook event: %w", err)
	}

	event.Status = domain.WebhookEventStatus(status)

	return event, nil
}

// Create создает журнальную запись о событии
func (r *PostgresWebhookEventRepository) Create(ctx context.Context, event domain.WebhookEvent) (domain.WebhookEvent, error) {
	query := `
		INSERT INTO webhook_events (id, external_id, type, status, resource_id, error_message, received_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.ExternalID,
		event.Type,
		string(event.Status),
		event.ResourceID,
		event.ErrorMessage,
		event.ReceivedAt,
		event.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.WebhookEvent{}, repository.ErrDuplicate
		}
		return domain.WebhookEvent{}, fmt.Errorf("failed to create webhook event: %w", err)
	}

	return event, nil
}

// UpdateStatus обновляет исход обработки существующей записи
func (r *PostgresWebhookEventRepository) UpdateStatus(ctx context.Context, externalID string, status domain.WebhookEventStatus, errorMessage string, processedAt time.Time) error {
	query := `
		UPDATE webhook_events
		SET status = $2, error_message = $3, processed_at = $4
		WHERE external_id = $1`

	tag, err := r.db.Exec(ctx, query, externalID, string(status), errorMessage, processedAt)
	if err != nil {
		return fmt.Errorf("failed to update webhook event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List возвращает последние события (новые в начале)
func (r *PostgresWebhookEventRepository) List(ctx context.Context, limit, offset int) ([]domain.WebhookEvent, error) {
	query := `
		SELECT id, external_id, type, status, resource_id, error_message, received_at, processed_at
		FROM webhook_events
		ORDER BY received_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook events: %w", err)
	}
	defer rows.Close()

	var events []domain.WebhookEvent
	for rows.Next() {
		var event domain.WebhookEvent
		var status string

		err := rows.Scan(
			&event.ID,
			&event.ExternalID,
			&event.Type,
			&status,
			&event.ResourceID,
			&event.ErrorMessage,
			&event.ReceivedAt,
			&event.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook event: %w", err)
		}

		event.Status = domain.WebhookEventStatus(status)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook events: %w", err)
	}

	return events, nil
}
