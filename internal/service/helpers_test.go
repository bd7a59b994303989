package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tintcrm/billing-service/internal/domain"
	stripeintegration "github.com/tintcrm/billing-service/internal/integration/stripe"
	"github.com/tintcrm/billing-service/internal/kafka"
	"github.com/tintcrm/billing-service/internal/metrics"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// testLogger возвращает тихий логгер для тестов
func testLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

// testMetrics возвращает метрики с изолированным реестром
func testMetrics() *metrics.BillingMetrics {
	return metrics.NewBillingMetrics(prometheus.NewRegistry())
}

// fakeGateway заглушка платежной системы. Создание клиента имитирует
// идемпотентность Stripe: повторный запрос с тем же ключом возвращает
// того же клиента.
type fakeGateway struct {
	mu sync.Mutex

	customersByKey map[string]string
	customerSeq    int
	customerErr    error

	checkoutErr  error
	lastCheckout stripeintegration.CheckoutParams

	portalURL string
	portalErr error

	products    []domain.Product
	productsErr error
	listCalls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		customersByKey: make(map[string]string),
		portalURL:      "https://billing.example.com/portal/ps_1",
	}
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, params stripeintegration.CustomerParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.customerErr != nil {
		return "", g.customerErr
	}

	if id, ok := g.customersByKey[params.IdempotencyKey]; ok {
		return id, nil
	}

	g.customerSeq++
	id := fmt.Sprintf("cus_%d", g.customerSeq)
	g.customersByKey[params.IdempotencyKey] = id
	return id, nil
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, params stripeintegration.CheckoutParams) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.checkoutErr != nil {
		return "", "", g.checkoutErr
	}

	g.lastCheckout = params
	return "cs_1", "https://checkout.example.com/cs_1", nil
}

func (g *fakeGateway) CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.portalErr != nil {
		return "", g.portalErr
	}
	return g.portalURL, nil
}

func (g *fakeGateway) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.listCalls++
	if g.productsErr != nil {
		return nil, g.productsErr
	}
	return g.products, nil
}

// fakePublisher собирает опубликованные сообщения
type fakePublisher struct {
	mu       sync.Mutex
	messages []kafka.EntitlementChangedMessage
	err      error
}

func (p *fakePublisher) PublishEntitlementChanged(ctx context.Context, msg kafka.EntitlementChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}
