package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/api/rest/middleware"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/internal/service"
	"github.com/tintcrm/billing-service/pkg/logger"
	"github.com/tintcrm/billing-service/pkg/req"
	"github.com/tintcrm/billing-service/pkg/res"
)

// BillingHandler выдает платежные сессии и каталог продуктов
type BillingHandler struct {
	checkout *service.CheckoutService
	log      *logger.Logger
}

// NewBillingHandler создает обработчик биллинговых маршрутов
func NewBillingHandler(checkout *service.CheckoutService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{
		checkout: checkout,
		log:      log,
	}
}

// sessionOrganizationID достает ID организации из клеймов сессии
func sessionOrganizationID(c *gin.Context) (uuid.UUID, string, error) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("%w: session required", domain.ErrUnauthenticated)
	}
	if claims.OrganizationID == "" {
		return uuid.Nil, "", fmt.Errorf("%w: organization required", domain.ErrNotFound)
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: malformed organization id", domain.ErrInvalidInput)
	}

	return orgID, claims.Email, nil
}

// CreateCheckoutSession обрабатывает POST /api/v1/billing/checkout
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	orgID, email, err := sessionOrganizationID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	w := http.ResponseWriter(c.Writer)
	body, err := req.HandleBody[domain.CheckoutRequest](&w, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	session, err := h.checkout.CreateCheckoutSession(c.Request.Context(), orgID, email, body.PriceID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, session, http.StatusOK)
}

// CreateBillingPortalSession обрабатывает POST /api/v1/billing/portal
func (h *BillingHandler) CreateBillingPortalSession(c *gin.Context) {
	orgID, _, err := sessionOrganizationID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	url, err := h.checkout.CreateBillingPortalSession(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"url": url}, http.StatusOK)
}

// ListProducts обрабатывает GET /api/v1/products
func (h *BillingHandler) ListProducts(c *gin.Context) {
	products, err := h.checkout.Products(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"products": products}, http.StatusOK)
}
