package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics метрики биллингового сервиса
type BillingMetrics struct {
	// WebhookEventsTotal количество вебхук-событий по типу и исходу
	// (processed/skipped/failed/duplicate/invalid)
	WebhookEventsTotal *prometheus.CounterVec

	// ReconcileApplyDuration длительность применения патча к записи организации
	ReconcileApplyDuration prometheus.Histogram

	// AccessDecisionsTotal решения о доступе по исходу (allow/login/onboarding/subscription_setup)
	AccessDecisionsTotal *prometheus.CounterVec

	// CheckoutSessionsTotal созданные checkout-сессии по исходу (created/rejected/failed)
	CheckoutSessionsTotal *prometheus.CounterVec

	// KafkaPublishErrorsTotal ошибки публикации событий в Kafka
	KafkaPublishErrorsTotal prometheus.Counter
}

// NewBillingMetrics создает и регистрирует метрики в переданном реестре
func NewBillingMetrics(registry prometheus.Registerer) *BillingMetrics {
	factory := promauto.With(registry)

	return &BillingMetrics{
		WebhookEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Total number of received webhook events by type and outcome",
		}, []string{"type", "outcome"}),

		ReconcileApplyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "billing_reconcile_apply_duration_seconds",
			Help:    "Duration of applying a reconciled patch to the organization record",
			Buckets: prometheus.DefBuckets,
		}),

		AccessDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_access_decisions_total",
			Help: "Total number of edge access decisions by outcome",
		}, []string{"outcome"}),

		CheckoutSessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_checkout_sessions_total",
			Help: "Total number of checkout session requests by outcome",
		}, []string{"outcome"}),

		KafkaPublishErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "billing_kafka_publish_errors_total",
			Help: "Total number of failed Kafka publish attempts",
		}),
	}
}
