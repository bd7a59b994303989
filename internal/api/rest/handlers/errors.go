package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/pkg/logger"
	"github.com/tintcrm/billing-service/pkg/res"
)

// statusForError переводит доменную ошибку в HTTP-статус
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrWebhookValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoBillingAccount):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrSubscriptionActive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExternalServiceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError отправляет доменную ошибку клиенту
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := statusForError(err)
	res.JsonErrorResponse(c.Writer, res.ErrorResponse{
		Error:     err.Error(),
		ErrorCode: status,
	}, status, log)
	c.Abort()
}
