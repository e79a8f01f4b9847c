package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plutov/paypal/v4"

	"github.com/MohsinAliJafery/backend/internal/config"
	"github.com/MohsinAliJafery/backend/internal/model"
)

// PaypalClient is the part of the PayPal SDK client the adapter calls.
type PaypalClient interface {
	CreateOrder(ctx context.Context, intent string, purchaseUnits []paypal.PurchaseUnitRequest, paymentSource *paypal.PaymentSource, appContext *paypal.ApplicationContext) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string, captureOrderRequest paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
}

var _ PaypalClient = (*paypal.Client)(nil)

type PaypalAdapter struct {
	client      PaypalClient
	brandName   string
	frontendURL string
}

// NewPaypalClient builds an SDK client for the sandbox or live API.
func NewPaypalClient(cfg config.PaypalConfig) (*paypal.Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("paypal client id and secret are required")
	}
	base := paypal.APIBaseSandBox
	if cfg.Live {
		base = paypal.APIBaseLive
	}
	return paypal.NewClient(cfg.ClientID, cfg.ClientSecret, base)
}

func NewPaypalAdapter(client PaypalClient, brandName, frontendURL string) *PaypalAdapter {
	return &PaypalAdapter{client: client, brandName: brandName, frontendURL: frontendURL}
}

func (p *PaypalAdapter) Name() model.PaymentMethod {
	return model.MethodPaypal
}

func (p *PaypalAdapter) Initiate(ctx context.Context, tx *model.Transaction, _ model.Customer) (*model.GatewayInitiation, error) {
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: tx.OrderID,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: tx.Currency,
			Value:    tx.Amount.StringFixed(2),
		},
		Description: fmt.Sprintf("%s subscription", tx.Tier),
	}}
	appCtx := &paypal.ApplicationContext{
		BrandName:  p.brandName,
		UserAction: "PAY_NOW",
		ReturnURL:  p.frontendURL + "/dashboard",
		CancelURL:  p.frontendURL + "/payment",
	}

	order, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return nil, fmt.Errorf("paypal create order: %w", err)
	}
	if order == nil || order.ID == "" {
		return nil, errors.New("paypal create order: empty order id")
	}

	return &model.GatewayInitiation{
		PaymentID: order.ID,
		Params: map[string]string{
			"orderID": order.ID,
			"status":  order.Status,
		},
	}, nil
}

func (p *PaypalAdapter) CaptureOrder(ctx context.Context, paymentID string) (*model.CaptureResult, error) {
	res, err := p.client.CaptureOrder(ctx, paymentID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("paypal capture order %s: %w", paymentID, err)
	}

	result := &model.CaptureResult{
		PaymentID: res.ID,
		Status:    res.Status,
	}
	if res.Payer != nil {
		result.PayerEmail = res.Payer.EmailAddress
		if res.Payer.Name != nil {
			result.PayerName = strings.TrimSpace(res.Payer.Name.GivenName + " " + res.Payer.Name.Surname)
		}
	}
	return result, nil
}
