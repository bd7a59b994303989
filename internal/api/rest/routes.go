package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tintcrm/billing-service/internal/api/rest/handlers"
	"github.com/tintcrm/billing-service/internal/api/rest/middleware"
	"github.com/tintcrm/billing-service/internal/metrics"
	"github.com/tintcrm/billing-service/internal/repository"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// RouterDeps зависимости HTTP-маршрутизатора
type RouterDeps struct {
	Logger        *logger.Logger
	Registry      *prometheus.Registry
	Metrics       *metrics.BillingMetrics
	Organizations repository.OrganizationRepository
	Validator     middleware.TokenValidator

	Webhooks      *handlers.WebhookHandler
	Billing       *handlers.BillingHandler
	OrgHandler    *handlers.OrganizationHandler
	HealthHandler *handlers.HealthHandler
}

// NewRouter собирает маршрутизатор с полной цепочкой миддлварей.
// Порядок фиксирован: recovery, лог, защитные заголовки, CSRF,
// разбор сессии, затем решение о доступе - до всех обработчиков.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CSRF(deps.Logger))
	router.Use(middleware.ResolveSession(deps.Validator, deps.Logger))
	router.Use(middleware.EdgeAuthorization(deps.Organizations, deps.Metrics, deps.Logger))

	router.GET("/health", deps.HealthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	router.POST("/webhooks/stripe", deps.Webhooks.HandleStripeWebhook)

	api := router.Group("/api/v1")
	{
		api.GET("/products", deps.Billing.ListProducts)

		authed := api.Group("", middleware.RequireAuth(deps.Logger))
		{
			authed.POST("/organizations", deps.OrgHandler.Create)
			authed.GET("/organization", deps.OrgHandler.Get)
			authed.POST("/billing/checkout", deps.Billing.CreateCheckoutSession)
			authed.POST("/billing/portal", deps.Billing.CreateBillingPortalSession)
			authed.GET("/webhook-events", deps.Webhooks.ListWebhookEvents)
		}
	}

	return router
}
