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

// OrganizationHandler маршруты организаций
type OrganizationHandler struct {
	organizations *service.OrganizationService
	log           *logger.Logger
}

// NewOrganizationHandler создает обработчик маршрутов организаций
func NewOrganizationHandler(organizations *service.OrganizationService, log *logger.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		organizations: organizations,
		log:           log,
	}
}

// Create обрабатывает POST /api/v1/organizations (онбординг)
func (h *OrganizationHandler) Create(c *gin.Context) {
	if _, ok := middleware.ClaimsFromContext(c); !ok {
		respondError(c, h.log, fmt.Errorf("%w: session required", domain.ErrUnauthenticated))
		return
	}

	w := http.ResponseWriter(c.Writer)
	body, err := req.HandleBody[domain.OrganizationRequest](&w, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	created, err := h.organizations.Create(c.Request.Context(), *body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, created, http.StatusCreated)
}

// Get обрабатывает GET /api/v1/organization: снимок собственной организации
func (h *OrganizationHandler) Get(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		respondError(c, h.log, fmt.Errorf("%w: session required", domain.ErrUnauthenticated))
		return
	}
	if claims.OrganizationID == "" {
		respondError(c, h.log, fmt.Errorf("%w: organization required", domain.ErrNotFound))
		return
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		respondError(c, h.log, fmt.Errorf("%w: malformed organization id", domain.ErrInvalidInput))
		return
	}

	org, err := h.organizations.Get(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, org, http.StatusOK)
}
