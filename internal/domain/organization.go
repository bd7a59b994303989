package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus статус подписки организации (источник истины - Stripe)
type SubscriptionStatus string

const (
	// SubscriptionStatusNone подписка еще не создавалась
	SubscriptionStatusNone     SubscriptionStatus = ""
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// EntitlesAccess сообщает, дает ли статус право доступа.
// Для trialing дополнительно требуется реальная подписка в Stripe,
// это проверяется в реконсилере.
func (s SubscriptionStatus) EntitlesAccess() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// Organization представляет собой запись организации (одна на тенант)
// с биллинговыми полями, которые изменяет только реконсилер.
type Organization struct {
	ID                   uuid.UUID          `json:"id"`
	Name                 string             `json:"name"`
	Subdomain            string             `json:"subdomain"`
	StripeCustomerID     *string            `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id,omitempty"`
	SubscriptionStatus   SubscriptionStatus `json:"subscription_status"`
	SubscriptionPlan     string             `json:"subscription_plan,omitempty"`
	IsActive             bool               `json:"is_active"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	TrialEndsAt          *time.Time         `json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// OrganizationPatch частичное обновление записи организации.
// nil-поле означает "не менять". Сброс current_period_end в NULL
// выражается отдельным флагом, потому что nil здесь занят.
type OrganizationPatch struct {
	StripeCustomerID      *string
	StripeSubscriptionID  *string
	SubscriptionStatus    *SubscriptionStatus
	SubscriptionPlan      *string
	IsActive              *bool
	CancelAtPeriodEnd     *bool
	TrialEndsAt           *time.Time
	CurrentPeriodEnd      *time.Time
	ClearCurrentPeriodEnd bool
}

// IsEmpty возвращает true, если патч не содержит изменений
func (p OrganizationPatch) IsEmpty() bool {
	return p.StripeCustomerID == nil &&
		p.StripeSubscriptionID == nil &&
		p.SubscriptionStatus == nil &&
		p.SubscriptionPlan == nil &&
		p.IsActive == nil &&
		p.CancelAtPeriodEnd == nil &&
		p.TrialEndsAt == nil &&
		p.CurrentPeriodEnd == nil &&
		!p.ClearCurrentPeriodEnd
}

// OrganizationRequest представляет запрос на создание организации
type OrganizationRequest struct {
	Name      string `json:"name" validate:"required"`
	Subdomain string `json:"subdomain" validate:"required,alphanum,lowercase,min=3,max=40"`
}

// CheckoutRequest представляет запрос на создание checkout-сессии
type CheckoutRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}
