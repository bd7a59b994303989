package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tintcrm/billing-service/internal/domain"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
)

func seedOrganization(t *testing.T, orgs *repository.InMemoryOrganizationRepository, customerID string) domain.Organization {
	t.Helper()

	org, err := orgs.Create(context.Background(), domain.Organization{
		Name:             "Tint Masters",
		Subdomain:        "tintmasters",
		StripeCustomerID: &customerID,
	})
	require.NoError(t, err)
	return org
}

func subscriptionEvent(eventID, customerID string) stripeintegration.IncomingEvent {
	periodEnd := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	return stripeintegration.IncomingEvent{
		ID:         eventID,
		Type:       domain.EventTypeSubscriptionUpdated,
		ResourceID: "sub_1",
		Event: domain.SubscriptionChanged{
			Type:           domain.EventTypeSubscriptionUpdated,
			SubscriptionID: "sub_1",
			CustomerID:     customerID,
			Status:         domain.SubscriptionStatusActive,
			PlanInterval:   "month",
			PeriodEnd:      &periodEnd,
		},
	}
}

func TestProcessEvent_AppliesPatchAndJournals(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	publisher := &fakePublisher{}
	svc := NewEntitlementService(orgs, events, publisher, testMetrics(), log)

	org := seedOrganization(t, orgs, "cus_1")

	err := svc.ProcessEvent(context.Background(), subscriptionEvent("evt_1", "cus_1"))
	require.NoError(t, err)

	updated, err := orgs.GetByID(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, updated.SubscriptionStatus)
	assert.True(t, updated.IsActive)
	require.NotNil(t, updated.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *updated.StripeSubscriptionID)
	assert.Equal(t, "month", updated.SubscriptionPlan)

	journal, err := events.GetByExternalID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookEventStatusProcessed, journal.Status)
	assert.Equal(t, "sub_1", journal.ResourceID)

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, org.ID.String(), publisher.messages[0].OrganizationID)
	assert.Equal(t, "active", publisher.messages[0].Status)
	assert.True(t, publisher.messages[0].IsActive)
}

func TestProcessEvent_DuplicateDeliveryIsAcknowledged(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	publisher := &fakePublisher{}
	svc := NewEntitlementService(orgs, events, publisher, testMetrics(), log)

	org := seedOrganization(t, orgs, "cus_1")

	require.NoError(t, svc.ProcessEvent(context.Background(), subscriptionEvent("evt_1", "cus_1")))
	firstState, err := orgs.GetByID(context.Background(), org.ID)
	require.NoError(t, err)

	// Повторная доставка того же события подтверждается без обработки
	require.NoError(t, svc.ProcessEvent(context.Background(), subscriptionEvent("evt_1", "cus_1")))

	secondState, err := orgs.GetByID(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, firstState, secondState)
	assert.Len(t, publisher.messages, 1)
}

func TestProcessEvent_OrganizationNotFound(t *testing.T) {
	var logOutput bytes.Buffer
	log := logger.New(logger.ERROR)
	log.SetOutput(&logOutput)
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	svc := NewEntitlementService(orgs, events, nil, testMetrics(), log)

	err := svc.ProcessEvent(context.Background(), subscriptionEvent("evt_1", "cus_unknown"))

	require.ErrorIs(t, err, domain.ErrNotFound)

	journal, err := events.GetByExternalID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookEventStatusFailed, journal.Status)

	// Потерянное событие видно оператору: уровень error и ссылка на клиента
	assert.Contains(t, logOutput.String(), "[ERROR]")
	assert.Contains(t, logOutput.String(), "reference=cus_unknown")
}

func TestProcessEvent_RetryAfterFailureReprocesses(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	svc := NewEntitlementService(orgs, events, nil, testMetrics(), log)

	// Первая доставка приходит до того, как организация видна
	err := svc.ProcessEvent(context.Background(), subscriptionEvent("evt_1", "cus_1"))
	require.ErrorIs(t, err, domain.ErrNotFound)

	// После провижининга повторная доставка завершает обработку
	org := seedOrganization(t, orgs, "cus_1")
	require.NoError(t, svc.ProcessEvent(context.Background(), subscriptionEvent("evt_1", "cus_1")))

	updated, err := orgs.GetByID(context.Background(), org.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	journal, err := events.GetByExternalID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookEventStatusProcessed, journal.Status)
}

func TestProcessEvent_UnknownEventIsSkipped(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	svc := NewEntitlementService(orgs, events, nil, testMetrics(), log)

	incoming := stripeintegration.IncomingEvent{
		ID:    "evt_1",
		Type:  "payment_intent.succeeded",
		Event: domain.UnknownEvent{Type: "payment_intent.succeeded"},
	}

	require.NoError(t, svc.ProcessEvent(context.Background(), incoming))

	journal, err := events.GetByExternalID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookEventStatusSkipped, journal.Status)
}

func TestProcessEvent_OrphanInvoiceIsSkipped(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	svc := NewEntitlementService(orgs, events, nil, testMetrics(), log)

	incoming := stripeintegration.IncomingEvent{
		ID:    "evt_1",
		Type:  domain.EventTypeInvoicePaymentSucceeded,
		Event: domain.InvoicePaymentSucceeded{},
	}

	require.NoError(t, svc.ProcessEvent(context.Background(), incoming))

	journal, err := events.GetByExternalID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookEventStatusSkipped, journal.Status)
}

func TestProcessEvent_PublishFailureDoesNotFailWebhook(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	publisher := &fakePublisher{err: assert.AnError}
	svc := NewEntitlementService(orgs, events, publisher, testMetrics(), log)

	seedOrganization(t, orgs, "cus_1")

	require.NoError(t, svc.ProcessEvent(context.Background(), subscriptionEvent("evt_1", "cus_1")))
}

func TestListRecentEvents(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	svc := NewEntitlementService(orgs, events, nil, testMetrics(), log)

	seedOrganization(t, orgs, "cus_1")
	require.NoError(t, svc.ProcessEvent(context.Background(), subscriptionEvent("evt_1", "cus_1")))

	listed, err := svc.ListRecentEvents(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "evt_1", listed[0].ExternalID)
}
