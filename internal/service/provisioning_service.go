package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/domain"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// ProvisioningService создает клиентов Stripe для организаций
type ProvisioningService struct {
	orgs    repository.OrganizationRepository
	gateway stripeintegration.Gateway
	log     *logger.Logger
}

// NewProvisioningService создает сервис провижининга биллинговых аккаунтов
func NewProvisioningService(orgs repository.OrganizationRepository, gateway stripeintegration.Gateway, log *logger.Logger) *ProvisioningService {
	return &ProvisioningService{
		orgs:    orgs,
		gateway: gateway,
		log:     log,
	}
}

// EnsureCustomer возвращает ID клиента Stripe организации, создавая клиента
// при первом обращении. Конкурентные вызовы схлопываются: ключ идемпотентности
// детерминированно выводится из ID организации, поэтому Stripe вернет одного
// и того же клиента всем участникам гонки.
func (s *ProvisioningService) EnsureCustomer(ctx context.Context, orgID uuid.UUID, email string) (string, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: organization %s", domain.ErrNotFound, orgID)
		}
		return "", fmt.Errorf("%w: failed to load organization: %v", domain.ErrInternal, err)
	}

	// Быстрый путь: клиент уже создан
	if org.StripeCustomerID != nil && *org.StripeCustomerID != "" {
		return *org.StripeCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, stripeintegration.CustomerParams{
		Email:          email,
		Name:           org.Name,
		OrganizationID: orgID.String(),
		IdempotencyKey: "customer_" + orgID.String(),
	})
	if err != nil {
		if errors.Is(err, stripeintegration.ErrIdempotencyConflict) {
			// Кто-то уже создал клиента с другими параметрами запроса.
			// Перечитываем запись: если конкурент успел сохранить ID, берем его.
			return s.refetchCustomerID(ctx, orgID, err)
		}
		return "", fmt.Errorf("%w: failed to create customer: %v", domain.ErrExternalServiceUnavailable, err)
	}

	stored := customerID
	patch := domain.OrganizationPatch{StripeCustomerID: &stored}
	if err := s.orgs.Update(ctx, orgID, patch); err != nil {
		// Сбой записи не отменяет созданного клиента: перечитываем,
		// вдруг конкурентный вызов уже сохранил тот же ID.
		s.log.Warnw("Failed to persist customer ID, refetching", "organizationID", orgID, "error", err)
		return s.refetchCustomerID(ctx, orgID, err)
	}

	s.log.Infow("Billing account provisioned", "organizationID", orgID, "stripeCustomerID", customerID)
	return customerID, nil
}

// refetchCustomerID перечитывает запись в надежде на результат конкурентного вызова
func (s *ProvisioningService) refetchCustomerID(ctx context.Context, orgID uuid.UUID, cause error) (string, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err == nil && org.StripeCustomerID != nil && *org.StripeCustomerID != "" {
		return *org.StripeCustomerID, nil
	}

	return "", fmt.Errorf("%w: failed to provision billing account: %v", domain.ErrInternal, cause)
}
