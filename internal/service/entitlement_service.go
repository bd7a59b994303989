package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tintcrm/billing-service/internal/billing"
	"github.com/tintcrm/billing-service/internal/domain"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/kafka"
	"github.com/tintcrm/billing-service/internal/metrics"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// EntitlementPublisher публикует смену прав доступа во внешнюю шину
type EntitlementPublisher interface {
	PublishEntitlementChanged(ctx context.Context, msg kafka.EntitlementChangedMessage) error
}

// EntitlementService применяет вебхук-события к записям организаций.
// Вся логика сверки вынесена в чистую функцию billing.Reconcile,
// сервис отвечает за дедупликацию, поиск записи, применение патча,
// журнал и публикацию события.
type EntitlementService struct {
	orgs      repository.OrganizationRepository
	events    repository.WebhookEventRepository
	publisher EntitlementPublisher
	metrics   *metrics.BillingMetrics
	log       *logger.Logger
}

// NewEntitlementService создает сервис обработки биллинговых событий.
// publisher может быть nil: тогда события во внешнюю шину не публикуются.
func NewEntitlementService(
	orgs repository.OrganizationRepository,
	events repository.WebhookEventRepository,
	publisher EntitlementPublisher,
	billingMetrics *metrics.BillingMetrics,
	log *logger.Logger,
) *EntitlementService {
	return &EntitlementService{
		orgs:      orgs,
		events:    events,
		publisher: publisher,
		metrics:   billingMetrics,
		log:       log,
	}
}

// ProcessEvent обрабатывает одно проверенное вебхук-событие.
// Возвращаемая ошибка означает, что провайдер должен повторить доставку;
// успешный возврат (включая no-op) подтверждает событие.
func (s *EntitlementService) ProcessEvent(ctx context.Context, incoming stripeintegration.IncomingEvent) error {
	// Дедупликация по ID события. Запись со статусом failed не считается
	// обработанной: повторная доставка дает шанс завершить обработку.
	reprocessing := false
	existing, err := s.events.GetByExternalID(ctx, incoming.ID)
	switch {
	case err == nil:
		if existing.Status != domain.WebhookEventStatusFailed {
			s.log.Infow("Duplicate webhook delivery acknowledged", "eventID", incoming.ID, "type", incoming.Type)
			s.countOutcome(incoming.Type, "duplicate")
			return nil
		}
		reprocessing = true
	case errors.Is(err, repository.ErrNotFound):
		// первое появление события
	default:
		return fmt.Errorf("%w: failed to check event journal: %v", domain.ErrInternal, err)
	}

	if _, ok := incoming.Event.(domain.UnknownEvent); ok {
		s.log.Debugw("Ignoring unhandled event type", "eventID", incoming.ID, "type", incoming.Type)
		s.recordOutcome(ctx, incoming, domain.WebhookEventStatusSkipped, "", reprocessing)
		s.countOutcome(incoming.Type, "skipped")
		return nil
	}

	org, done, err := s.locateOrganization(ctx, incoming, reprocessing)
	if done || err != nil {
		return err
	}

	delta := billing.Reconcile(incoming.Event, org)
	if !delta.Changed {
		s.log.Infow("Event already applied, no changes", "eventID", incoming.ID, "organizationID", org.ID)
		s.recordOutcome(ctx, incoming, domain.WebhookEventStatusSkipped, "", reprocessing)
		s.countOutcome(incoming.Type, "skipped")
		return nil
	}

	timer := prometheus.NewTimer(s.metrics.ReconcileApplyDuration)
	err = s.orgs.Update(ctx, org.ID, delta.Patch)
	timer.ObserveDuration()
	if err != nil {
		s.log.Errorw("Failed to apply reconciled patch", "eventID", incoming.ID, "organizationID", org.ID, "error", err)
		s.recordOutcome(ctx, incoming, domain.WebhookEventStatusFailed, err.Error(), reprocessing)
		s.countOutcome(incoming.Type, "failed")
		return fmt.Errorf("%w: failed to apply patch: %v", domain.ErrInternal, err)
	}

	s.log.Infow("Entitlement state reconciled",
		"eventID", incoming.ID,
		"type", incoming.Type,
		"organizationID", org.ID,
	)
	s.recordOutcome(ctx, incoming, domain.WebhookEventStatusProcessed, "", reprocessing)
	s.countOutcome(incoming.Type, "processed")

	s.publishChange(ctx, incoming, org, delta.Patch)

	return nil
}

// ListRecentEvents возвращает последние записи журнала вебхук-событий
func (s *EntitlementService) ListRecentEvents(ctx context.Context, limit, offset int) ([]domain.WebhookEvent, error) {
	events, err := s.events.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list webhook events: %v", domain.ErrInternal, err)
	}
	return events, nil
}

// locateOrganization находит запись организации по идентификаторам из события.
// done=true означает, что обработка завершена без поиска (no-op).
func (s *EntitlementService) locateOrganization(ctx context.Context, incoming stripeintegration.IncomingEvent, reprocessing bool) (domain.Organization, bool, error) {
	var (
		org       domain.Organization
		err       error
		lookupRef string
	)

	switch e := incoming.Event.(type) {
	case domain.SubscriptionChanged:
		lookupRef = e.CustomerID
		org, err = s.orgs.GetByStripeCustomerID(ctx, e.CustomerID)
	case domain.SubscriptionDeleted:
		lookupRef = e.CustomerID
		org, err = s.orgs.GetByStripeCustomerID(ctx, e.CustomerID)
	case domain.InvoicePaymentSucceeded:
		if e.SubscriptionID == "" {
			s.recordOutcome(ctx, incoming, domain.WebhookEventStatusSkipped, "", reprocessing)
			s.countOutcome(incoming.Type, "skipped")
			return domain.Organization{}, true, nil
		}
		lookupRef = e.SubscriptionID
		org, err = s.orgs.GetByStripeSubscriptionID(ctx, e.SubscriptionID)
	case domain.InvoicePaymentFailed:
		if e.SubscriptionID == "" {
			s.recordOutcome(ctx, incoming, domain.WebhookEventStatusSkipped, "", reprocessing)
			s.countOutcome(incoming.Type, "skipped")
			return domain.Organization{}, true, nil
		}
		lookupRef = e.SubscriptionID
		org, err = s.orgs.GetByStripeSubscriptionID(ctx, e.SubscriptionID)
	default:
		s.recordOutcome(ctx, incoming, domain.WebhookEventStatusSkipped, "", reprocessing)
		s.countOutcome(incoming.Type, "skipped")
		return domain.Organization{}, true, nil
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Организация еще не видна (гонка с провижинингом) - просим
			// провайдера повторить доставку позже.
			s.log.Errorw("Organization not found for event",
				"eventID", incoming.ID,
				"type", incoming.Type,
				"reference", lookupRef,
			)
			s.recordOutcome(ctx, incoming, domain.WebhookEventStatusFailed, "organization not found", reprocessing)
			s.countOutcome(incoming.Type, "failed")
			return domain.Organization{}, false, fmt.Errorf("%w: organization for event %s", domain.ErrNotFound, incoming.ID)
		}
		s.countOutcome(incoming.Type, "failed")
		return domain.Organization{}, false, fmt.Errorf("%w: failed to locate organization: %v", domain.ErrInternal, err)
	}

	return org, false, nil
}

// recordOutcome пишет исход обработки в журнал (best-effort)
func (s *EntitlementService) recordOutcome(ctx context.Context, incoming stripeintegration.IncomingEvent, status domain.WebhookEventStatus, errorMessage string, reprocessing bool) {
	now := time.Now().UTC()

	if reprocessing {
		if err := s.events.UpdateStatus(ctx, incoming.ID, status, errorMessage, now); err != nil {
			s.log.Warnw("Failed to update webhook event journal", "eventID", incoming.ID, "error", err)
		}
		return
	}

	_, err := s.events.Create(ctx, domain.WebhookEvent{
		ExternalID:   incoming.ID,
		Type:         incoming.Type,
		Status:       status,
		ResourceID:   incoming.ResourceID,
		ErrorMessage: errorMessage,
		ReceivedAt:   now,
		ProcessedAt:  &now,
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		s.log.Warnw("Failed to record webhook event", "eventID", incoming.ID, "error", err)
	}
}

// publishChange публикует смену права доступа (best-effort, вебхук не роняет)
func (s *EntitlementService) publishChange(ctx context.Context, incoming stripeintegration.IncomingEvent, org domain.Organization, patch domain.OrganizationPatch) {
	if s.publisher == nil {
		return
	}

	status := org.SubscriptionStatus
	if patch.SubscriptionStatus != nil {
		status = *patch.SubscriptionStatus
	}
	isActive := org.IsActive
	if patch.IsActive != nil {
		isActive = *patch.IsActive
	}

	msg := kafka.EntitlementChangedMessage{
		OrganizationID: org.ID.String(),
		Status:         string(status),
		IsActive:       isActive,
		EventID:        incoming.ID,
		EventType:      incoming.Type,
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.publisher.PublishEntitlementChanged(ctx, msg); err != nil {
		s.metrics.KafkaPublishErrorsTotal.Inc()
		s.log.Warnw("Failed to publish entitlement change", "organizationID", org.ID, "error", err)
	}
}

// countOutcome инкрементирует счетчик событий по типу и исходу
func (s *EntitlementService) countOutcome(eventType, outcome string) {
	s.metrics.WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}
