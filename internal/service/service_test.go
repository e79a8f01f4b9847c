package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MohsinAliJafery/backend/internal/checksum"
	"github.com/MohsinAliJafery/backend/internal/config"
	"github.com/MohsinAliJafery/backend/internal/core"
	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/repository"
	"github.com/MohsinAliJafery/backend/internal/service"
	"github.com/MohsinAliJafery/backend/internal/settings"
)

const merchantKey = "l%FAgDhj0#KDK274"

type stubGateway struct {
	method     model.PaymentMethod
	initiateFn func(ctx context.Context, tx *model.Transaction, customer model.Customer) (*model.GatewayInitiation, error)
}

func (g *stubGateway) Name() model.PaymentMethod { return g.method }

func (g *stubGateway) Initiate(ctx context.Context, tx *model.Transaction, customer model.Customer) (*model.GatewayInitiation, error) {
	if g.initiateFn != nil {
		return g.initiateFn(ctx, tx, customer)
	}
	return &model.GatewayInitiation{PaymentID: tx.OrderID, Params: map[string]string{"ORDER_ID": tx.OrderID}}, nil
}

type stubCapturer struct {
	stubGateway
	captureFn func(ctx context.Context, paymentID string) (*model.CaptureResult, error)
}

func (c *stubCapturer) CaptureOrder(ctx context.Context, paymentID string) (*model.CaptureResult, error) {
	return c.captureFn(ctx, paymentID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.SubscriptionEvent
	err    error
}

func (p *recordingPublisher) PublishSubscriptionExtended(_ context.Context, event model.SubscriptionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []model.SubscriptionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.SubscriptionEvent(nil), p.events...)
}

type failingPricing struct{}

func (failingPricing) ResolvePrice(context.Context, model.Tier) (decimal.Decimal, string, error) {
	return decimal.Zero, "", errors.New("settings unavailable")
}

type harness struct {
	svc       *service.PaymentService
	repo      *repository.MemoryTransactionRepository
	signer    *checksum.Signer
	publisher *recordingPublisher
	providers *core.ProviderRegistry
	now       time.Time
}

type harnessOption func(*service.Dependencies)

func newHarness(t *testing.T, gateways []model.PaymentMethod, opts ...harnessOption) *harness {
	t.Helper()

	signer, err := checksum.New(merchantKey)
	require.NoError(t, err)
	pricing, err := settings.NewStaticPricing(config.PricingConfig{
		Currency: "USD", Trial: "0.01", Weekly: "9.99", Monthly: "29.99", Yearly: "99.99",
	})
	require.NoError(t, err)

	h := &harness{
		repo:      repository.NewMemoryTransactionRepository(),
		signer:    signer,
		publisher: &recordingPublisher{},
		providers: core.NewProviderRegistry(),
		now:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, m := range gateways {
		h.providers.Register(&stubGateway{method: m})
	}

	deps := service.Dependencies{
		Providers:  h.providers,
		Repository: h.repo,
		Pricing:    pricing,
		Signer:     signer,
		Publisher:  h.publisher,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout:    time.Second,
		Clock:      func() time.Time { return h.now },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.svc = service.NewPaymentService(deps)
	return h
}

func (h *harness) initiate(t *testing.T, method model.PaymentMethod) *model.InitiateResponse {
	t.Helper()
	resp, err := h.svc.Initiate(context.Background(), model.InitiateRequest{
		Customer: model.Customer{UserID: "user-1", Email: "a@example.com"},
		Tier:     model.TierMonthly,
		Method:   method,
	})
	require.NoError(t, err)
	return resp
}

func (h *harness) signed(t *testing.T, p checksum.Params) checksum.Params {
	t.Helper()
	sig, err := h.signer.Sign(p)
	require.NoError(t, err)
	out := p.Clone()
	out[checksum.FieldName] = sig
	return out
}

func (h *harness) stored(t *testing.T, orderID string) *model.Transaction {
	t.Helper()
	tx, err := h.repo.FindByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	return tx
}
