package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// Ключ метаданных для связи объектов Stripe с организацией
const metadataOrganizationIDKey = "organization_id"

// ErrIdempotencyConflict ключ идемпотентности уже использован с другими параметрами.
// Вызывающий перечитывает состояние вместо того, чтобы считать это фатальной ошибкой.
var ErrIdempotencyConflict = errors.New("stripe: idempotency key already used")

// CustomerParams параметры создания клиента в Stripe
type CustomerParams struct {
	Email          string
	Name           string
	OrganizationID string
	// IdempotencyKey детерминированно выводится из ID организации:
	// конкурентные дубликаты запросов схлопываются в одного клиента
	IdempotencyKey string
}

// CheckoutParams параметры создания сессии оплаты
type CheckoutParams struct {
	CustomerID      string
	PriceID         string
	OrganizationID  string
	TrialPeriodDays int64
	SuccessURL      string
	CancelURL       string
}

// Gateway определяет операции платежной системы, которые использует сервис
type Gateway interface {
	// CreateCustomer создает клиента в Stripe и возвращает его ID
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)

	// CreateCheckoutSession создает hosted checkout сессию
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (sessionID, url string, err error)

	// CreateBillingPortalSession создает сессию биллинг-портала
	CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (string, error)

	// ListActiveProducts возвращает активные продукты с тарифами
	ListActiveProducts(ctx context.Context) ([]domain.Product, error)
}

// stripeGateway реализует интерфейс Gateway через Stripe SDK
type stripeGateway struct {
	client *client.API
	log    *logger.Logger
}

// NewGateway создает новый экземпляр клиента Stripe
func NewGateway(apiKey string, log *logger.Logger) Gateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeGateway{
		client: sc,
		log:    log,
	}
}

// CreateCustomer создает нового клиента в Stripe
func (g *stripeGateway) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	customerParams := &stripe.CustomerParams{
		Email: stripe.String(params.Email),
		Name:  stripe.String(params.Name),
		Metadata: map[string]string{
			metadataOrganizationIDKey: params.OrganizationID,
		},
	}
	customerParams.Context = ctx
	if params.IdempotencyKey != "" {
		customerParams.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}

	cus, err := g.client.Customers.New(customerParams)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeIdempotency {
			g.log.Warnw("Idempotency conflict on customer creation", "organizationID", params.OrganizationID)
			return "", ErrIdempotencyConflict
		}
		logStripeError(g.log, "CreateCustomer", err)
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	g.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "organizationID", params.OrganizationID)
	return cus.ID, nil
}

// CreateCheckoutSession создает hosted checkout сессию для подписки
func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, string, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(params.CustomerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata: map[string]string{
			metadataOrganizationIDKey: params.OrganizationID,
		},
	}
	if params.TrialPeriodDays > 0 {
		sessionParams.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(params.TrialPeriodDays),
			Metadata: map[string]string{
				metadataOrganizationIDKey: params.OrganizationID,
			},
		}
	}
	sessionParams.Context = ctx

	session, err := g.client.CheckoutSessions.New(sessionParams)
	if err != nil {
		logStripeError(g.log, "CreateCheckoutSession", err)
		return "", "", fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.log.Infow("Checkout session created", "sessionID", session.ID, "organizationID", params.OrganizationID)
	return session.ID, session.URL, nil
}

// CreateBillingPortalSession создает сессию биллинг-портала
func (g *stripeGateway) CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	portalParams := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	portalParams.Context = ctx

	session, err := g.client.BillingPortalSessions.New(portalParams)
	if err != nil {
		logStripeError(g.log, "CreateBillingPortalSession", err)
		return "", fmt.Errorf("stripe: failed to create billing portal session: %w", err)
	}

	g.log.Infow("Billing portal session created", "stripeCustomerID", customerID)
	return session.URL, nil
}

// ListActiveProducts возвращает активные продукты с тарифами
func (g *stripeGateway) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	priceParams := &stripe.PriceListParams{Active: stripe.Bool(true)}
	priceParams.Context = ctx
	priceParams.Limit = stripe.Int64(100)

	// Группируем тарифы по продуктам
	pricesByProduct := make(map[string][]domain.Price)
	priceIter := g.client.Prices.List(priceParams)
	for priceIter.Next() {
		price := priceIter.Price()
		if price.Product == nil {
			continue
		}

		mapped := domain.Price{
			ID:         price.ID,
			ProductID:  price.Product.ID,
			UnitAmount: price.UnitAmount,
			Currency:   string(price.Currency),
			Type:       string(price.Type),
			Active:     price.Active,
		}
		if price.Recurring != nil {
			mapped.Interval = string(price.Recurring.Interval)
			mapped.IntervalCount = price.Recurring.IntervalCount
			mapped.TrialPeriodDays = price.Recurring.TrialPeriodDays
		}

		pricesByProduct[price.Product.ID] = append(pricesByProduct[price.Product.ID], mapped)
	}
	if err := priceIter.Err(); err != nil {
		logStripeError(g.log, "ListPrices", err)
		return nil, fmt.Errorf("stripe: failed to list prices: %w", err)
	}

	productParams := &stripe.ProductListParams{Active: stripe.Bool(true)}
	productParams.Context = ctx
	productParams.Limit = stripe.Int64(100)

	var products []domain.Product
	productIter := g.client.Products.List(productParams)
	for productIter.Next() {
		product := productIter.Product()
		products = append(products, domain.Product{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Prices:      pricesByProduct[product.ID],
		})
	}
	if err := productIter.Err(); err != nil {
		logStripeError(g.log, "ListProducts", err)
		return nil, fmt.Errorf("stripe: failed to list products: %w", err)
	}

	g.log.Debugw("Fetched product catalog from Stripe", "products", len(products))
	return products, nil
}

// logStripeError вспомогательная функция для логирования деталей ошибки Stripe
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
