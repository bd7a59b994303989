package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tintcrm/billing-service/internal/billing"
	"github.com/tintcrm/billing-service/internal/metrics"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
	"github.com/tintcrm/billing-service/pkg/res"
)

// Префиксы, не участвующие в проверке доступа
var staticPrefixes = []string{"/static/", "/assets/", "/favicon.ico"}

func isStaticPath(path string) bool {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	return false
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// EdgeAuthorization применяет решение о доступе до всех обработчиков.
// Снимок организации читается один раз на запрос; решение сводится
// к billing.ResolveRedirect. Для API-путей редирект переводится в
// 401/403, для страниц выдается 303 See Other.
func EdgeAuthorization(orgs repository.OrganizationRepository, billingMetrics *metrics.BillingMetrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if isStaticPath(path) || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		claims, authenticated := ClaimsFromContext(c)
		hasOrganization := authenticated && claims.OrganizationID != ""

		// Право доступа читается из снимка организации, и только для
		// тенант-зависимых путей: публичные и auth-only маршруты решаются
		// без обращения к хранилищу. Ошибка чтения трактуется как
		// отсутствие доступа (fail-closed), а не как 500.
		needsSnapshot := !billing.IsPublicPath(path) && !billing.IsAuthOnlyPath(path)
		hasAccess := false
		if hasOrganization && needsSnapshot {
			orgID, err := uuid.Parse(claims.OrganizationID)
			if err != nil {
				hasOrganization = false
			} else {
				org, err := orgs.GetByID(c.Request.Context(), orgID)
				switch {
				case err == nil:
					hasAccess = billing.HasAccess(&org)
				case errors.Is(err, repository.ErrNotFound):
					hasOrganization = false
				default:
					log.Errorw("Failed to load organization for access check", "organizationID", orgID, "error", err)
				}
			}
		}

		target, redirect := billing.ResolveRedirect(authenticated, hasOrganization, hasAccess, path)
		if !redirect {
			billingMetrics.AccessDecisionsTotal.WithLabelValues("allow").Inc()
			c.Next()
			return
		}

		billingMetrics.AccessDecisionsTotal.WithLabelValues(outcomeForTarget(target)).Inc()

		if isAPIPath(path) {
			status := http.StatusForbidden
			message := "access denied"
			if !authenticated {
				status = http.StatusUnauthorized
				message = "authentication required"
			}
			res.JsonErrorResponse(c.Writer, res.ErrorResponse{
				Error:     message,
				ErrorCode: status,
			}, status, log)
			c.Abort()
			return
		}

		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}

// outcomeForTarget переводит целевой адрес редиректа в метку метрики
func outcomeForTarget(target string) string {
	switch {
	case strings.HasPrefix(target, billing.LoginPath):
		return "login"
	case target == billing.OnboardingPath:
		return "onboarding"
	case target == billing.SubscriptionSetupPath:
		return "subscription_setup"
	case target == billing.DashboardPath:
		return "dashboard"
	default:
		return "other"
	}
}
