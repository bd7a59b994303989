package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tintcrm/billing-service/internal/domain"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/metrics"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/internal/service"
	"github.com/tintcrm/billing-service/pkg/logger"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload строит заголовок Stripe-Signature по схеме
// v1 = HMAC-SHA256(secret, "{timestamp}.{payload}")
func signPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func quietLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

type webhookFixture struct {
	orgs   *repository.InMemoryOrganizationRepository
	events *repository.InMemoryWebhookEventRepository
	router *gin.Engine
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := quietLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	events := repository.NewInMemoryWebhookEventRepository(log)
	billingMetrics := metrics.NewBillingMetrics(prometheus.NewRegistry())

	entitlements := service.NewEntitlementService(orgs, events, nil, billingMetrics, log)
	verifier := stripeintegration.NewWebhookVerifier(testWebhookSecret, log)
	handler := NewWebhookHandler(verifier, entitlements, log)

	router := gin.New()
	router.POST("/webhooks/stripe", handler.HandleStripeWebhook)
	router.GET("/api/v1/webhook-events", handler.ListWebhookEvents)

	return &webhookFixture{orgs: orgs, events: events, router: router}
}

func (f *webhookFixture) deliver(t *testing.T, payload, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func subscriptionEventPayload(eventID, customerID string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"api_version": "2024-04-10",
		"type": "customer.subscription.updated",
		"data": {
			"object": {
				"id": "sub_1",
				"customer": %q,
				"status": "active",
				"cancel_at_period_end": false,
				"current_period_end": 1750000000,
				"items": {"data": [{"current_period_end": 1750000000, "price": {"recurring": {"interval": "month"}}}]}
			}
		}
	}`, eventID, customerID)
}

func TestHandleStripeWebhook_Success(t *testing.T) {
	f := newWebhookFixture(t)

	customerID := "cus_1"
	org, err := f.orgs.Create(context.Background(), domain.Organization{
		Name:             "Tint Masters",
		Subdomain:        "tintmasters",
		StripeCustomerID: &customerID,
	})
	require.NoError(t, err)

	payload := subscriptionEventPayload("evt_1", "cus_1")
	rec := f.deliver(t, payload, signPayload([]byte(payload), testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())

	updated, err := f.orgs.GetByID(context.Background(), org.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.Equal(t, domain.SubscriptionStatusActive, updated.SubscriptionStatus)
}

func TestHandleStripeWebhook_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)

	payload := subscriptionEventPayload("evt_1", "cus_1")
	rec := f.deliver(t, payload, signPayload([]byte(payload), "whsec_wrong_secret", time.Now()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStripeWebhook_MissingSignature(t *testing.T) {
	f := newWebhookFixture(t)

	rec := f.deliver(t, subscriptionEventPayload("evt_1", "cus_1"), "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStripeWebhook_TamperedPayload(t *testing.T) {
	f := newWebhookFixture(t)

	payload := subscriptionEventPayload("evt_1", "cus_1")
	signature := signPayload([]byte(payload), testWebhookSecret, time.Now())
	tampered := strings.Replace(payload, "cus_1", "cus_2", 1)

	rec := f.deliver(t, tampered, signature)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStripeWebhook_UnknownOrganization(t *testing.T) {
	f := newWebhookFixture(t)

	payload := subscriptionEventPayload("evt_1", "cus_unknown")
	rec := f.deliver(t, payload, signPayload([]byte(payload), testWebhookSecret, time.Now()))

	// 404 заставляет провайдера повторить доставку позже
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStripeWebhook_DuplicateDelivery(t *testing.T) {
	f := newWebhookFixture(t)

	customerID := "cus_1"
	_, err := f.orgs.Create(context.Background(), domain.Organization{
		Name:             "Tint Masters",
		Subdomain:        "tintmasters",
		StripeCustomerID: &customerID,
	})
	require.NoError(t, err)

	payload := subscriptionEventPayload("evt_1", "cus_1")
	signature := signPayload([]byte(payload), testWebhookSecret, time.Now())

	first := f.deliver(t, payload, signature)
	second := f.deliver(t, payload, signature)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestListWebhookEvents(t *testing.T) {
	f := newWebhookFixture(t)

	customerID := "cus_1"
	_, err := f.orgs.Create(context.Background(), domain.Organization{
		Name:             "Tint Masters",
		Subdomain:        "tintmasters",
		StripeCustomerID: &customerID,
	})
	require.NoError(t, err)

	payload := subscriptionEventPayload("evt_1", "cus_1")
	f.deliver(t, payload, signPayload([]byte(payload), testWebhookSecret, time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhook-events?limit=10", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evt_1")
	assert.Contains(t, rec.Body.String(), "processed")
}
