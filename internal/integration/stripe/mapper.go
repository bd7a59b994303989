package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/tintcrm/billing-service/internal/domain"
)

// subscriptionPayload срез полей подписки из полезной нагрузки вебхука.
// Разбираем сырой JSON вместо stripe.Subscription: нужны только эти поля,
// и смена версии API провайдера не ломает разбор остальных.
type subscriptionPayload struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	TrialEnd          int64  `json:"trial_end"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// invoicePayload срез полей счета из полезной нагрузки вебхука
type invoicePayload struct {
	Subscription string `json:"subscription"`
}

// MapEvent конвертирует событие Stripe в доменное биллинговое событие.
// Нераспознанные типы отображаются в UnknownEvent, ошибкой считается
// только нечитаемая полезная нагрузка известного типа.
func MapEvent(event stripe.Event) (domain.BillingEvent, error) {
	switch string(event.Type) {
	case domain.EventTypeSubscriptionCreated, domain.EventTypeSubscriptionUpdated:
		var payload subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal subscription payload: %w", err)
		}

		changed := domain.SubscriptionChanged{
			Type:              string(event.Type),
			SubscriptionID:    payload.ID,
			CustomerID:        payload.Customer,
			Status:            domain.SubscriptionStatus(payload.Status),
			CancelAtPeriodEnd: payload.CancelAtPeriodEnd,
			PeriodEnd:         unixTime(payload.CurrentPeriodEnd),
			TrialEnd:          unixTime(payload.TrialEnd),
		}
		if len(payload.Items.Data) > 0 {
			item := payload.Items.Data[0]
			changed.ItemPeriodEnd = unixTime(item.CurrentPeriodEnd)
			changed.PlanInterval = item.Price.Recurring.Interval
		}
		return changed, nil

	case domain.EventTypeSubscriptionDeleted:
		var payload subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal subscription payload: %w", err)
		}
		return domain.SubscriptionDeleted{
			SubscriptionID: payload.ID,
			CustomerID:     payload.Customer,
		}, nil

	case domain.EventTypeInvoicePaymentSucceeded:
		var payload invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal invoice payload: %w", err)
		}
		return domain.InvoicePaymentSucceeded{SubscriptionID: payload.Subscription}, nil

	case domain.EventTypeInvoicePaymentFailed:
		var payload invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal invoice payload: %w", err)
		}
		return domain.InvoicePaymentFailed{SubscriptionID: payload.Subscription}, nil

	default:
		return domain.UnknownEvent{Type: string(event.Type)}, nil
	}
}

// unixTime переводит unix-время в *time.Time, ноль означает отсутствие значения
func unixTime(v int64) *time.Time {
	if v == 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}
