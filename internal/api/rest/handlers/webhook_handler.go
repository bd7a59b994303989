package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/service"
	"github.com/tintcrm/billing-service/pkg/logger"
	"github.com/tintcrm/billing-service/pkg/res"
)

// Лимит размера тела вебхука (защита от раздутых запросов)
const maxWebhookBodyBytes = 64 * 1024

// WebhookHandler принимает вебхуки платежной системы
type WebhookHandler struct {
	verifier     stripeintegration.SignatureVerifier
	entitlements *service.EntitlementService
	log          *logger.Logger
}

// NewWebhookHandler создает обработчик вебхуков
func NewWebhookHandler(verifier stripeintegration.SignatureVerifier, entitlements *service.EntitlementService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:     verifier,
		entitlements: entitlements,
		log:          log,
	}
}

// HandleStripeWebhook обрабатывает POST /webhooks/stripe.
// Неуспешные статусы (4xx/5xx) заставляют провайдера повторить доставку,
// поэтому 200 возвращается для всех корректно принятых событий,
// включая no-op и дубликаты.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.log.Errorw("Failed to read webhook body", "error", err)
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{
			Error:     "failed to read request body",
			ErrorCode: http.StatusBadRequest,
		}, http.StatusBadRequest, h.log)
		return
	}

	incoming, err := h.verifier.VerifyAndParse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.entitlements.ProcessEvent(c.Request.Context(), incoming); err != nil {
		respondError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{"received": true}, http.StatusOK)
}

// ListWebhookEvents обрабатывает GET /api/v1/webhook-events.
// Журнал событий для отладки доставки вебхуков.
func (h *WebhookHandler) ListWebhookEvents(c *gin.Context) {
	limit := parsePositiveInt(c.DefaultQuery("limit", "50"), 50)
	if limit > 200 {
		limit = 200
	}
	offset := parsePositiveInt(c.DefaultQuery("offset", "0"), 0)

	events, err := h.entitlements.ListRecentEvents(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, gin.H{
		"events": events,
		"limit":  limit,
		"offset": offset,
	}, http.StatusOK)
}

// parsePositiveInt разбирает неотрицательное число с запасным значением
func parsePositiveInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
