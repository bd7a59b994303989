package billing

import (
	"time"

	"github.com/tintcrm/billing-service/internal/domain"
)

// Delta результат сверки события с текущим состоянием записи.
// Changed=false означает no-op: событие уже применено или не несет изменений.
type Delta struct {
	Changed bool
	Patch   domain.OrganizationPatch
}

// Reconcile чистая функция сверки: отображает входящее биллинговое событие
// и текущий снимок записи организации в частичное обновление (или no-op).
// Не имеет побочных эффектов; защита от повторной и неупорядоченной доставки
// строится на сравнении по значению с живым состоянием.
func Reconcile(event domain.BillingEvent, current domain.Organization) Delta {
	switch e := event.(type) {
	case domain.SubscriptionChanged:
		return reconcileSubscriptionChanged(e, current)
	case domain.SubscriptionDeleted:
		return reconcileSubscriptionDeleted(current)
	case domain.InvoicePaymentSucceeded:
		return reconcileInvoicePaymentSucceeded(e, current)
	case domain.InvoicePaymentFailed:
		return reconcileInvoicePaymentFailed(e, current)
	case domain.UnknownEvent:
		return Delta{}
	default:
		return Delta{}
	}
}

// reconcileSubscriptionChanged обрабатывает customer.subscription.created/updated
func reconcileSubscriptionChanged(e domain.SubscriptionChanged, current domain.Organization) Delta {
	// Триальный доступ выдается только при реально существующей подписке
	// в Stripe, а не по одному лишь статусу trialing.
	shouldBeActive := e.Status.EntitlesAccess()
	if e.Status == domain.SubscriptionStatusTrialing && e.SubscriptionID == "" {
		shouldBeActive = false
	}

	// Защита от повторов: пишем только если хоть одно из четырех полей
	// отличается от текущего состояния.
	sameSubID := current.StripeSubscriptionID != nil && *current.StripeSubscriptionID == e.SubscriptionID
	if current.SubscriptionStatus == e.Status &&
		sameSubID &&
		current.IsActive == shouldBeActive &&
		current.CancelAtPeriodEnd == e.CancelAtPeriodEnd {
		return Delta{}
	}

	status := e.Status
	subID := e.SubscriptionID
	cancelAtPeriodEnd := e.CancelAtPeriodEnd
	patch := domain.OrganizationPatch{
		SubscriptionStatus:   &status,
		StripeSubscriptionID: &subID,
		IsActive:             &shouldBeActive,
		CancelAtPeriodEnd:    &cancelAtPeriodEnd,
	}

	if e.PlanInterval != "" {
		plan := e.PlanInterval
		patch.SubscriptionPlan = &plan
	}
	if e.TrialEnd != nil {
		trialEnd := *e.TrialEnd
		patch.TrialEndsAt = &trialEnd
	}

	if periodEnd := resolvePeriodEnd(e); periodEnd != nil {
		value := *periodEnd
		patch.CurrentPeriodEnd = &value
	} else {
		patch.ClearCurrentPeriodEnd = true
	}

	return Delta{Changed: true, Patch: patch}
}

// resolvePeriodEnd выбирает источник current_period_end в порядке
// убывания авторитетности: корень события, первая позиция подписки,
// для trialing - конец триала, иначе null.
func resolvePeriodEnd(e domain.SubscriptionChanged) *time.Time {
	if e.PeriodEnd != nil {
		return e.PeriodEnd
	}
	if e.ItemPeriodEnd != nil {
		return e.ItemPeriodEnd
	}
	if e.Status == domain.SubscriptionStatusTrialing && e.TrialEnd != nil {
		return e.TrialEnd
	}
	return nil
}

// reconcileSubscriptionDeleted обрабатывает customer.subscription.deleted
func reconcileSubscriptionDeleted(current domain.Organization) Delta {
	if current.SubscriptionStatus == domain.SubscriptionStatusCanceled {
		return Delta{}
	}

	status := domain.SubscriptionStatusCanceled
	inactive := false
	noCancel := false
	return Delta{
		Changed: true,
		Patch: domain.OrganizationPatch{
			SubscriptionStatus:    &status,
			IsActive:              &inactive,
			CancelAtPeriodEnd:     &noCancel,
			ClearCurrentPeriodEnd: true,
		},
	}
}

// reconcileInvoicePaymentSucceeded обрабатывает invoice.payment_succeeded
func reconcileInvoicePaymentSucceeded(e domain.InvoicePaymentSucceeded, current domain.Organization) Delta {
	// Счета без подписки (разовые платежи) не влияют на доступ
	if e.SubscriptionID == "" {
		return Delta{}
	}
	if current.SubscriptionStatus == domain.SubscriptionStatusActive && current.IsActive {
		return Delta{}
	}

	status := domain.SubscriptionStatusActive
	active := true
	return Delta{
		Changed: true,
		Patch: domain.OrganizationPatch{
			SubscriptionStatus: &status,
			IsActive:           &active,
		},
	}
}

// reconcileInvoicePaymentFailed обрабатывает invoice.payment_failed.
// IsActive не трогаем: на время повторных попыток оплаты доступ сохраняется.
func reconcileInvoicePaymentFailed(e domain.InvoicePaymentFailed, current domain.Organization) Delta {
	if e.SubscriptionID == "" {
		return Delta{}
	}
	if current.SubscriptionStatus == domain.SubscriptionStatusPastDue {
		return Delta{}
	}

	status := domain.SubscriptionStatusPastDue
	return Delta{
		Changed: true,
		Patch: domain.OrganizationPatch{
			SubscriptionStatus: &status,
		},
	}
}
