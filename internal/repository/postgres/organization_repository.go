package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
)

const uniqueViolationCode = "23505"

const organizationColumns = `
		id, name, subdomain, stripe_customer_id, stripe_subscription_id,
		subscription_status, subscription_plan, is_active, cancel_at_period_end,
		trial_ends_at, current_period_end, created_at, updated_at`

// PostgresOrganizationRepository реализация репозитория организаций через PostgreSQL
type PostgresOrganizationRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresOrganizationRepository создает новый репозиторий организаций через PostgreSQL
func NewPostgresOrganizationRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresOrganizationRepository {
	return &PostgresOrganizationRepository{
		db:  db,
		log: log,
	}
}

func scanOrganization(row pgx.Row) (domain.Organization, error) {
	var org domain.Organization
	var status, plan string

	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Subdomain,
		&org.StripeCustomerID,
		&org.StripeSubscriptionID,
		&status,
		&plan,
		&org.IsActive,
		&org.CancelAtPeriodEnd,
		&org.TrialEndsAt,
		&org.CurrentPeriodEnd,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Organization{}, repository.ErrNotFound
		}
		return domain.Organization{}, fmt.Errorf("failed to scan organization: %w", err)
	}

	org.SubscriptionStatus = domain.SubscriptionStatus(status)
	org.SubscriptionPlan = plan

	return org, nil
}

// GetByID возвращает организацию по первичному ключу
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	query := `SELECT` + organizationColumns + `
		FROM organizations
		WHERE id = $1`

	return scanOrganization(r.db.QueryRow(ctx, query, id))
}

// GetByStripeCustomerID возвращает организацию по ID клиента Stripe
func (r *PostgresOrganizationRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (domain.Organization, error) {
	query := `SELECT` + organizationColumns + `
		FROM organizations
		WHERE stripe_customer_id = $1`

	return scanOrganization(r.db.QueryRow(ctx, query, customerID))
}

// GetByStripeSubscriptionID возвращает организацию по ID подписки Stripe
func (r *PostgresOrganizationRepository) GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (domain.Organization, error) {
	query := `SELECT` + organizationColumns + `
		FROM organizations
		WHERE stripe_subscription_id = $1`

	return scanOrganization(r.db.QueryRow(ctx, query, subscriptionID))
}

// Create создает новую организацию
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	query := `
		INSERT INTO organizations (id, name, subdomain, subscription_status, subscription_plan,
			is_active, cancel_at_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING` + organizationColumns

	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}

	created, err := scanOrganization(r.db.QueryRow(ctx, query,
		org.ID,
		org.Name,
		org.Subdomain,
		string(org.SubscriptionStatus),
		org.SubscriptionPlan,
		org.IsActive,
		org.CancelAtPeriodEnd,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.Organization{}, repository.ErrDuplicate
		}
		return domain.Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}

	r.log.Infow("Organization created", "organizationID", created.ID, "subdomain", created.Subdomain)
	return created, nil
}

// Update применяет частичное обновление одной атомарной записью строки.
// В запрос попадают только заполненные поля патча.
func (r *PostgresOrganizationRepository) Update(ctx context.Context, id uuid.UUID, patch domain.OrganizationPatch) error {
	setClauses := make([]string, 0, 9)
	args := make([]interface{}, 0, 10)

	addClause := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.StripeCustomerID != nil {
		addClause("stripe_customer_id", *patch.StripeCustomerID)
	}
	if patch.StripeSubscriptionID != nil {
		addClause("stripe_subscription_id", *patch.StripeSubscriptionID)
	}
	if patch.SubscriptionStatus != nil {
		addClause("subscription_status", string(*patch.SubscriptionStatus))
	}
	if patch.SubscriptionPlan != nil {
		addClause("subscription_plan", *patch.SubscriptionPlan)
	}
	if patch.IsActive != nil {
		addClause("is_active", *patch.IsActive)
	}
	if patch.CancelAtPeriodEnd != nil {
		addClause("cancel_at_period_end", *patch.CancelAtPeriodEnd)
	}
	if patch.TrialEndsAt != nil {
		addClause("trial_ends_at", *patch.TrialEndsAt)
	}
	if patch.ClearCurrentPeriodEnd {
		setClauses = append(setClauses, "current_period_end = NULL")
	} else if patch.CurrentPeriodEnd != nil {
		addClause("current_period_end", *patch.CurrentPeriodEnd)
	}

	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE organizations SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "),
		len(args),
	)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
