package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/MohsinAliJafery/backend/internal/model"
)

// IPaymentGateway prepares the gateway side of a freshly created
// pending transaction.
type IPaymentGateway interface {
	Name() model.PaymentMethod
	Initiate(ctx context.Context, tx *model.Transaction, customer model.Customer) (*model.GatewayInitiation, error)
}

// IOrderCapturer is implemented by gateways with a synchronous capture call.
type IOrderCapturer interface {
	CaptureOrder(ctx context.Context, paymentID string) (*model.CaptureResult, error)
}

type IPricingResolver interface {
	ResolvePrice(ctx context.Context, tier model.Tier) (decimal.Decimal, string, error)
}

type IEventPublisher interface {
	PublishSubscriptionExtended(ctx context.Context, event model.SubscriptionEvent) error
}

// IIdentityVerifier resolves the caller's identity from an inbound request
// credential.
type IIdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*model.Customer, error)
}
