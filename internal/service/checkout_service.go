package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/cache"
	"github.com/tintcrm/billing-service/internal/domain"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/metrics"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// CheckoutConfig параметры checkout-сессий и биллинг-портала
type CheckoutConfig struct {
	SuccessURL       string
	CancelURL        string
	PortalReturnURL  string
	DefaultTrialDays int64
}

// CheckoutSession результат создания checkout-сессии
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CheckoutService выдает checkout-сессии и сессии биллинг-портала
type CheckoutService struct {
	orgs         repository.OrganizationRepository
	gateway      stripeintegration.Gateway
	provisioning *ProvisioningService
	catalog      *cache.TTLCache[[]domain.Product]
	metrics      *metrics.BillingMetrics
	config       CheckoutConfig
	log          *logger.Logger
}

// NewCheckoutService создает сервис выдачи платежных сессий
func NewCheckoutService(
	orgs repository.OrganizationRepository,
	gateway stripeintegration.Gateway,
	provisioning *ProvisioningService,
	catalog *cache.TTLCache[[]domain.Product],
	billingMetrics *metrics.BillingMetrics,
	config CheckoutConfig,
	log *logger.Logger,
) *CheckoutService {
	return &CheckoutService{
		orgs:         orgs,
		gateway:      gateway,
		provisioning: provisioning,
		catalog:      catalog,
		metrics:      billingMetrics,
		config:       config,
		log:          log,
	}
}

// CreateCheckoutSession создает hosted checkout сессию для организации.
// Блокируется только живая подписка: смена тарифа делается через
// биллинг-портал. Организация в грейс-периоде (past_due) сохраняет
// доступ, но вправе оформить новую подписку.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, orgID uuid.UUID, email, priceID string) (CheckoutSession, error) {
	if priceID == "" {
		return CheckoutSession{}, fmt.Errorf("%w: price id is required", domain.ErrInvalidInput)
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CheckoutSession{}, fmt.Errorf("%w: organization %s", domain.ErrNotFound, orgID)
		}
		return CheckoutSession{}, fmt.Errorf("%w: failed to load organization: %v", domain.ErrInternal, err)
	}

	if org.SubscriptionStatus == domain.SubscriptionStatusActive {
		s.metrics.CheckoutSessionsTotal.WithLabelValues("rejected").Inc()
		return CheckoutSession{}, fmt.Errorf("%w: organization %s", domain.ErrSubscriptionActive, orgID)
	}

	customerID, err := s.provisioning.EnsureCustomer(ctx, orgID, email)
	if err != nil {
		s.metrics.CheckoutSessionsTotal.WithLabelValues("failed").Inc()
		return CheckoutSession{}, err
	}

	trialDays := s.trialDaysFor(ctx, priceID)

	sessionID, url, err := s.gateway.CreateCheckoutSession(ctx, stripeintegration.CheckoutParams{
		CustomerID:      customerID,
		PriceID:         priceID,
		OrganizationID:  orgID.String(),
		TrialPeriodDays: trialDays,
		SuccessURL:      s.config.SuccessURL,
		CancelURL:       s.config.CancelURL,
	})
	if err != nil {
		s.metrics.CheckoutSessionsTotal.WithLabelValues("failed").Inc()
		return CheckoutSession{}, fmt.Errorf("%w: failed to create checkout session: %v", domain.ErrExternalServiceUnavailable, err)
	}

	s.metrics.CheckoutSessionsTotal.WithLabelValues("created").Inc()
	return CheckoutSession{SessionID: sessionID, URL: url}, nil
}

// CreateBillingPortalSession создает сессию биллинг-портала.
// Без биллингового аккаунта портал недоступен: сначала checkout.
func (s *CheckoutService) CreateBillingPortalSession(ctx context.Context, orgID uuid.UUID) (string, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: organization %s", domain.ErrNotFound, orgID)
		}
		return "", fmt.Errorf("%w: failed to load organization: %v", domain.ErrInternal, err)
	}

	if org.StripeCustomerID == nil || *org.StripeCustomerID == "" {
		return "", fmt.Errorf("%w: organization %s", domain.ErrNoBillingAccount, orgID)
	}

	url, err := s.gateway.CreateBillingPortalSession(ctx, *org.StripeCustomerID, s.config.PortalReturnURL)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create billing portal session: %v", domain.ErrExternalServiceUnavailable, err)
	}

	return url, nil
}

// Products возвращает каталог продуктов. Свежий каталог берется из кеша,
// по истечении TTL каталог перечитывается из Stripe; при недоступности
// Stripe отдается устаревший кеш вместо ошибки.
func (s *CheckoutService) Products(ctx context.Context) ([]domain.Product, error) {
	cached, fresh, ok := s.catalog.Get()
	if ok && fresh {
		return cached, nil
	}

	products, err := s.gateway.ListActiveProducts(ctx)
	if err != nil {
		if ok {
			s.log.Warnw("Catalog refresh failed, serving stale cache", "error", err)
			return cached, nil
		}
		return nil, fmt.Errorf("%w: failed to fetch product catalog: %v", domain.ErrExternalServiceUnavailable, err)
	}

	s.catalog.Set(products)
	return products, nil
}

// trialDaysFor определяет длительность триала для тарифа по каталогу
func (s *CheckoutService) trialDaysFor(ctx context.Context, priceID string) int64 {
	products, err := s.Products(ctx)
	if err != nil {
		s.log.Warnw("Failed to resolve trial days from catalog, using default", "priceID", priceID, "error", err)
		return s.config.DefaultTrialDays
	}

	return domain.TrialDaysForPrice(products, priceID, s.config.DefaultTrialDays)
}
