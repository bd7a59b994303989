package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// OrganizationService операции над записями организаций
type OrganizationService struct {
	orgs repository.OrganizationRepository
	log  *logger.Logger
}

// NewOrganizationService создает сервис организаций
func NewOrganizationService(orgs repository.OrganizationRepository, log *logger.Logger) *OrganizationService {
	return &OrganizationService{
		orgs: orgs,
		log:  log,
	}
}

// Create создает организацию при онбординге. Новая организация неактивна
// и без биллинговых полей: доступ появится только после оформления подписки.
func (s *OrganizationService) Create(ctx context.Context, req domain.OrganizationRequest) (domain.Organization, error) {
	now := time.Now().UTC()
	org := domain.Organization{
		ID:                 uuid.New(),
		Name:               req.Name,
		Subdomain:          req.Subdomain,
		SubscriptionStatus: domain.SubscriptionStatusNone,
		IsActive:           false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	created, err := s.orgs.Create(ctx, org)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Organization{}, fmt.Errorf("%w: subdomain %q is taken", domain.ErrDuplicate, req.Subdomain)
		}
		return domain.Organization{}, fmt.Errorf("%w: failed to create organization: %v", domain.ErrInternal, err)
	}

	s.log.Infow("Organization created", "organizationID", created.ID, "subdomain", created.Subdomain)
	return created, nil
}

// Get возвращает снимок организации по первичному ключу
func (s *OrganizationService) Get(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Organization{}, fmt.Errorf("%w: organization %s", domain.ErrNotFound, id)
		}
		return domain.Organization{}, fmt.Errorf("%w: failed to load organization: %v", domain.ErrInternal, err)
	}

	return org, nil
}
