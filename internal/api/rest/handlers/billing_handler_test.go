package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tintcrm/billing-service/internal/api/rest/middleware"
	"github.com/tintcrm/billing-service/internal/cache"
	"github.com/tintcrm/billing-service/internal/domain"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/metrics"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/internal/service"
)

const testJWTSecret = "test-jwt-secret"

// stubGateway платежная система с фиксированными ответами
type stubGateway struct {
	products []domain.Product
}

func (g *stubGateway) CreateCustomer(ctx context.Context, params stripeintegration.CustomerParams) (string, error) {
	return "cus_1", nil
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, params stripeintegration.CheckoutParams) (string, string, error) {
	return "cs_1", "https://checkout.example.com/cs_1", nil
}

func (g *stubGateway) CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return "https://billing.example.com/portal/ps_1", nil
}

func (g *stubGateway) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return g.products, nil
}

func issueToken(t *testing.T, email, organizationID string) string {
	t.Helper()

	claims := middleware.TokenClaims{
		Email:          email,
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

type billingFixture struct {
	orgs   *repository.InMemoryOrganizationRepository
	router *gin.Engine
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := quietLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	gateway := &stubGateway{}
	clock := cache.SystemClock()
	catalog := cache.New[[]domain.Product](5*time.Minute, clock)
	billingMetrics := metrics.NewBillingMetrics(prometheus.NewRegistry())

	provisioning := service.NewProvisioningService(orgs, gateway, log)
	checkout := service.NewCheckoutService(orgs, gateway, provisioning, catalog, billingMetrics, service.CheckoutConfig{
		SuccessURL:       "https://app.tintcrm.example/billing?success=true",
		CancelURL:        "https://app.tintcrm.example/subscription-setup",
		PortalReturnURL:  "https://app.tintcrm.example/billing",
		DefaultTrialDays: 14,
	}, log)
	organizations := service.NewOrganizationService(orgs, log)

	billingHandler := NewBillingHandler(checkout, log)
	orgHandler := NewOrganizationHandler(organizations, log)

	router := gin.New()
	router.Use(middleware.ResolveSession(middleware.NewTokenValidator(testJWTSecret), log))
	router.POST("/api/v1/billing/checkout", billingHandler.CreateCheckoutSession)
	router.POST("/api/v1/billing/portal", billingHandler.CreateBillingPortalSession)
	router.GET("/api/v1/products", billingHandler.ListProducts)
	router.POST("/api/v1/organizations", orgHandler.Create)
	router.GET("/api/v1/organization", orgHandler.Get)

	return &billingFixture{orgs: orgs, router: router}
}

func (f *billingFixture) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateCheckoutSession_ReturnsSessionURL(t *testing.T) {
	f := newBillingFixture(t)

	org, err := f.orgs.Create(context.Background(), domain.Organization{Name: "Tint Masters", Subdomain: "tintmasters"})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, "/api/v1/billing/checkout",
		issueToken(t, "owner@tintmasters.example", org.ID.String()),
		`{"price_id": "price_monthly"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://checkout.example.com/cs_1")
}

func TestCreateCheckoutSession_ActiveSubscriptionConflict(t *testing.T) {
	f := newBillingFixture(t)

	org, err := f.orgs.Create(context.Background(), domain.Organization{
		Name:               "Tint Masters",
		Subdomain:          "tintmasters",
		SubscriptionStatus: domain.SubscriptionStatusActive,
		IsActive:           true,
	})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, "/api/v1/billing/checkout",
		issueToken(t, "owner@tintmasters.example", org.ID.String()),
		`{"price_id": "price_monthly"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateCheckoutSession_MissingPriceRejected(t *testing.T) {
	f := newBillingFixture(t)

	org, err := f.orgs.Create(context.Background(), domain.Organization{Name: "Tint Masters", Subdomain: "tintmasters"})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, "/api/v1/billing/checkout",
		issueToken(t, "owner@tintmasters.example", org.ID.String()),
		`{}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateBillingPortalSession_NoBillingAccountNotFound(t *testing.T) {
	f := newBillingFixture(t)

	org, err := f.orgs.Create(context.Background(), domain.Organization{Name: "Tint Masters", Subdomain: "tintmasters"})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, "/api/v1/billing/portal",
		issueToken(t, "owner@tintmasters.example", org.ID.String()), "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBillingPortalSession_Success(t *testing.T) {
	f := newBillingFixture(t)

	customerID := "cus_1"
	org, err := f.orgs.Create(context.Background(), domain.Organization{
		Name:             "Tint Masters",
		Subdomain:        "tintmasters",
		StripeCustomerID: &customerID,
	})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, "/api/v1/billing/portal",
		issueToken(t, "owner@tintmasters.example", org.ID.String()), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://billing.example.com/portal/ps_1")
}

func TestCreateOrganization_Onboarding(t *testing.T) {
	f := newBillingFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/organizations",
		issueToken(t, "owner@tintmasters.example", ""),
		`{"name": "Tint Masters", "subdomain": "tintmasters"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscription_status":""`)
	assert.Contains(t, rec.Body.String(), `"is_active":false`)
}

func TestCreateOrganization_DuplicateSubdomain(t *testing.T) {
	f := newBillingFixture(t)

	token := issueToken(t, "owner@tintmasters.example", "")
	body := `{"name": "Tint Masters", "subdomain": "tintmasters"}`

	first := f.request(t, http.MethodPost, "/api/v1/organizations", token, body)
	second := f.request(t, http.MethodPost, "/api/v1/organizations", token, body)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestCreateOrganization_InvalidSubdomain(t *testing.T) {
	f := newBillingFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/organizations",
		issueToken(t, "owner@tintmasters.example", ""),
		`{"name": "Tint Masters", "subdomain": "Bad_Subdomain!"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetOrganization_ReturnsOwnSnapshot(t *testing.T) {
	f := newBillingFixture(t)

	org, err := f.orgs.Create(context.Background(), domain.Organization{Name: "Tint Masters", Subdomain: "tintmasters"})
	require.NoError(t, err)

	rec := f.request(t, http.MethodGet, "/api/v1/organization",
		issueToken(t, "owner@tintmasters.example", org.ID.String()), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), org.ID.String())
}

func TestListProducts_Public(t *testing.T) {
	f := newBillingFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v1/products", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
