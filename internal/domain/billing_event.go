package domain

import "time"

// Типы событий Stripe, которые обрабатывает реконсилер
const (
	EventTypeSubscriptionCreated     = "customer.subscription.created"
	EventTypeSubscriptionUpdated     = "customer.subscription.updated"
	EventTypeSubscriptionDeleted     = "customer.subscription.deleted"
	EventTypeInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventTypeInvoicePaymentFailed    = "invoice.payment_failed"
)

// BillingEvent размеченное объединение биллинговых событий.
// Каждый вариант обрабатывается своим обработчиком в реконсилере,
// добавление нового варианта проверяется на этапе компиляции.
type BillingEvent interface {
	// EventType возвращает исходный тип события у платежного провайдера
	EventType() string
}

// SubscriptionChanged событие customer.subscription.created/updated
type SubscriptionChanged struct {
	Type              string
	SubscriptionID    string
	CustomerID        string
	Status            SubscriptionStatus
	CancelAtPeriodEnd bool
	PlanInterval      string
	// PeriodEnd корневой current_period_end события (наиболее авторитетный источник)
	PeriodEnd *time.Time
	// ItemPeriodEnd период из первой позиции подписки (запасной источник)
	ItemPeriodEnd *time.Time
	TrialEnd      *time.Time
}

// EventType возвращает исходный тип события
func (e SubscriptionChanged) EventType() string { return e.Type }

// SubscriptionDeleted событие customer.subscription.deleted
type SubscriptionDeleted struct {
	SubscriptionID string
	CustomerID     string
}

// EventType возвращает исходный тип события
func (e SubscriptionDeleted) EventType() string { return EventTypeSubscriptionDeleted }

// InvoicePaymentSucceeded событие invoice.payment_succeeded.
// SubscriptionID пустой, если счет не привязан к подписке.
type InvoicePaymentSucceeded struct {
	SubscriptionID string
}

// EventType возвращает исходный тип события
func (e InvoicePaymentSucceeded) EventType() string { return EventTypeInvoicePaymentSucceeded }

// InvoicePaymentFailed событие invoice.payment_failed
type InvoicePaymentFailed struct {
	SubscriptionID string
}

// EventType возвращает исходный тип события
func (e InvoicePaymentFailed) EventType() string { return EventTypeInvoicePaymentFailed }

// UnknownEvent нераспознанный тип события. Не ошибка: событие
// подтверждается провайдеру, но факт пропуска логируется.
type UnknownEvent struct {
	Type string
}

// EventType возвращает исходный тип события
func (e UnknownEvent) EventType() string { return e.Type }
