package adapters_test

import (
	"context"
	"errors"
	"testing"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MohsinAliJafery/backend/internal/adapters"
	"github.com/MohsinAliJafery/backend/internal/checksum"
	"github.com/MohsinAliJafery/backend/internal/config"
	"github.com/MohsinAliJafery/backend/internal/model"
)

func pendingTx() *model.Transaction {
	return &model.Transaction{
		ID:            "tx-1",
		UserID:        "user-1",
		Amount:        decimal.RequireFromString("29.99"),
		Currency:      "USD",
		PaymentMethod: model.MethodPaytm,
		OrderID:       "ORDER_1700000000000_aaaaaaaaaaaa",
		Tier:          model.TierMonthly,
		Status:        model.StatusPending,
	}
}

func TestPaytmAdapter_SignsParams(t *testing.T) {
	signer, err := checksum.New("merchant-key")
	require.NoError(t, err)

	cfg := config.PaytmConfig{MerchantID: "MID01", IndustryTypeID: "Retail", ChannelID: "WEB", Website: "WEBSTAGING"}
	a, err := adapters.NewPaytmAdapter(cfg, "http://localhost:8080/api/payments/paytm/callback", signer)
	require.NoError(t, err)
	require.Equal(t, model.MethodPaytm, a.Name())

	out, err := a.Initiate(context.Background(), pendingTx(), model.Customer{UserID: "user-1", Email: "u@example.com"})
	require.NoError(t, err)
	require.Equal(t, "ORDER_1700000000000_aaaaaaaaaaaa", out.PaymentID)
	require.Equal(t, "29.99", out.Params["TXN_AMOUNT"])
	require.Equal(t, "9999999999", out.Params["MOBILE_NO"])

	sig, ok := checksum.SignatureOf(out.Params)
	require.True(t, ok)
	require.True(t, signer.Verify(out.Params, sig))
}

func TestPaytmAdapter_RequiresMerchantID(t *testing.T) {
	signer, err := checksum.New("merchant-key")
	require.NoError(t, err)
	_, err = adapters.NewPaytmAdapter(config.PaytmConfig{}, "", signer)
	require.Error(t, err)
}

type stubPaypalClient struct {
	createFn  func(ctx context.Context, intent string, units []paypal.PurchaseUnitRequest, appCtx *paypal.ApplicationContext) (*paypal.Order, error)
	captureFn func(ctx context.Context, orderID string) (*paypal.CaptureOrderResponse, error)
}

func (s *stubPaypalClient) CreateOrder(ctx context.Context, intent string, units []paypal.PurchaseUnitRequest, _ *paypal.PaymentSource, appCtx *paypal.ApplicationContext) (*paypal.Order, error) {
	return s.createFn(ctx, intent, units, appCtx)
}

func (s *stubPaypalClient) CaptureOrder(ctx context.Context, orderID string, _ paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error) {
	return s.captureFn(ctx, orderID)
}

func TestPaypalAdapter_Initiate(t *testing.T) {
	var gotUnits []paypal.PurchaseUnitRequest
	client := &stubPaypalClient{createFn: func(_ context.Context, intent string, units []paypal.PurchaseUnitRequest, appCtx *paypal.ApplicationContext) (*paypal.Order, error) {
		require.Equal(t, paypal.OrderIntentCapture, intent)
		require.Equal(t, "http://localhost:3000/dashboard", appCtx.ReturnURL)
		gotUnits = units
		return &paypal.Order{ID: "5O190127TN364715T", Status: "CREATED"}, nil
	}}

	tx := pendingTx()
	tx.PaymentMethod = model.MethodPaypal
	out, err := adapters.NewPaypalAdapter(client, "Payment Portal", "http://localhost:3000").Initiate(context.Background(), tx, model.Customer{})
	require.NoError(t, err)
	require.Equal(t, "5O190127TN364715T", out.PaymentID)
	require.Len(t, gotUnits, 1)
	require.Equal(t, "29.99", gotUnits[0].Amount.Value)
	require.Equal(t, "USD", gotUnits[0].Amount.Currency)
	require.Equal(t, tx.OrderID, gotUnits[0].ReferenceID)
}

func TestPaypalAdapter_InitiateError(t *testing.T) {
	boom := errors.New("401 unauthorized")
	client := &stubPaypalClient{createFn: func(context.Context, string, []paypal.PurchaseUnitRequest, *paypal.ApplicationContext) (*paypal.Order, error) {
		return nil, boom
	}}

	_, err := adapters.NewPaypalAdapter(client, "", "").Initiate(context.Background(), pendingTx(), model.Customer{})
	require.ErrorIs(t, err, boom)
}

func TestPaypalAdapter_Capture(t *testing.T) {
	client := &stubPaypalClient{captureFn: func(_ context.Context, orderID string) (*paypal.CaptureOrderResponse, error) {
		return &paypal.CaptureOrderResponse{
			ID:     orderID,
			Status: "COMPLETED",
			Payer: &paypal.PayerWithNameAndPhone{
				EmailAddress: "buyer@example.com",
				Name:         &paypal.CreateOrderPayerName{GivenName: "Ada", Surname: "Lovelace"},
			},
		}, nil
	}}

	res, err := adapters.NewPaypalAdapter(client, "", "").CaptureOrder(context.Background(), "5O190127TN364715T")
	require.NoError(t, err)
	require.Equal(t, model.CaptureStatusCompleted, res.Status)
	require.Equal(t, "buyer@example.com", res.PayerEmail)
	require.Equal(t, "Ada Lovelace", res.PayerName)
}

func TestHeaderIdentityVerifier(t *testing.T) {
	v := adapters.NewHeaderIdentityVerifier()

	c, err := v.Verify(context.Background(), "  user-42 ")
	require.NoError(t, err)
	require.Equal(t, "user-42", c.UserID)

	_, err = v.Verify(context.Background(), "")
	require.ErrorIs(t, err, adapters.ErrMissingIdentity)

	_, err = v.Verify(context.Background(), "user 42")
	require.Error(t, err)
}

func TestPaypalClient_SatisfiedBySDK(t *testing.T) {
	var c any = &paypal.Client{}
	_, ok := c.(adapters.PaypalClient)
	require.True(t, ok)
}
