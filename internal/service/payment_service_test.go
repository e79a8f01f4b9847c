package service_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MohsinAliJafery/backend/internal/apperrors"
	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/service"
)

func TestNewOrderID_Format(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := service.NewOrderID(now)
	require.Regexp(t, regexp.MustCompile(`^ORDER_1700000000123_[0-9a-f]{12}$`), id)
	require.NotEqual(t, id, service.NewOrderID(now))
}

func TestInitiate_CreatesPendingTransaction(t *testing.T) {
	h := newHarness(t, []model.PaymentMethod{model.MethodPaytm})

	resp := h.initiate(t, model.MethodPaytm)

	require.Equal(t, "29.99", resp.Amount.StringFixed(2))
	require.Equal(t, "USD", resp.Currency)
	require.Equal(t, resp.OrderID, resp.Params["ORDER_ID"])

	tx := h.stored(t, resp.OrderID)
	require.Equal(t, model.StatusPending, tx.Status)
	require.Equal(t, model.IntegrityNotApplicable, tx.Integrity)
	require.Equal(t, "user-1", tx.UserID)
	require.Equal(t, model.TierMonthly, tx.Tier)
	require.Equal(t, resp.TransactionID, tx.ID)
	require.Equal(t, h.now, tx.CreatedAt)
	require.Nil(t, tx.CompletedAt)
}

func TestInitiate_AttachesGatewayPaymentID(t *testing.T) {
	h := newHarness(t, nil)
	h.providers.Register(&stubGateway{
		method: model.MethodPaypal,
		initiateFn: func(context.Context, *model.Transaction, model.Customer) (*model.GatewayInitiation, error) {
			return &model.GatewayInitiation{PaymentID: "PAYPAL-ORDER-9"}, nil
		},
	})

	resp := h.initiate(t, model.MethodPaypal)
	require.Equal(t, "PAYPAL-ORDER-9", resp.PaymentID)

	tx, err := h.repo.FindByPaymentID(context.Background(), "PAYPAL-ORDER-9")
	require.NoError(t, err)
	require.Equal(t, resp.OrderID, tx.OrderID)
}

func TestInitiate_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t, []model.PaymentMethod{model.MethodPaytm})

	tests := []struct {
		name string
		req  model.InitiateRequest
	}{
		{"unknown tier", model.InitiateRequest{Customer: model.Customer{UserID: "u"}, Tier: "lifetime_sub", Method: model.MethodPaytm}},
		{"missing user", model.InitiateRequest{Tier: model.TierWeekly, Method: model.MethodPaytm}},
		{"unconfigured method", model.InitiateRequest{Customer: model.Customer{UserID: "u"}, Tier: model.TierWeekly, Method: model.MethodPaypal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Initiate(context.Background(), tt.req)
			require.True(t, apperrors.Is(err, apperrors.KindInvalidRequest), "got %v", err)
		})
	}

	txs, err := h.repo.FindByUser(context.Background(), "u")
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestInitiate_GatewayFailureMarksFailed(t *testing.T) {
	h := newHarness(t, nil)
	var orderID string
	h.providers.Register(&stubGateway{
		method: model.MethodPaytm,
		initiateFn: func(_ context.Context, tx *model.Transaction, _ model.Customer) (*model.GatewayInitiation, error) {
			orderID = tx.OrderID
			return nil, errors.New("gateway down")
		},
	})

	_, err := h.svc.Initiate(context.Background(), model.InitiateRequest{
		Customer: model.Customer{UserID: "user-1"},
		Tier:     model.TierWeekly,
		Method:   model.MethodPaytm,
	})
	require.True(t, apperrors.Is(err, apperrors.KindUpstreamFailure))

	tx := h.stored(t, orderID)
	require.Equal(t, model.StatusFailed, tx.Status)
	require.Equal(t, model.GatewayInitiateFailed, tx.GatewayStatus)
	require.NotNil(t, tx.CompletedAt)
}

func TestInitiate_PricingFailure(t *testing.T) {
	h := newHarness(t, []model.PaymentMethod{model.MethodPaytm}, func(d *service.Dependencies) {
		d.Pricing = failingPricing{}
	})

	_, err := h.svc.Initiate(context.Background(), model.InitiateRequest{
		Customer: model.Customer{UserID: "user-1"},
		Tier:     model.TierWeekly,
		Method:   model.MethodPaytm,
	})
	require.True(t, apperrors.Is(err, apperrors.KindUpstreamFailure))

	txs, err := h.repo.FindByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestListUserTransactions(t *testing.T) {
	h := newHarness(t, []model.PaymentMethod{model.MethodPaytm})
	first := h.initiate(t, model.MethodPaytm)
	h.now = h.now.Add(time.Minute)
	second := h.initiate(t, model.MethodPaytm)

	list, err := h.svc.ListUserTransactions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.OrderID, list[0].OrderID)
	require.Equal(t, first.OrderID, list[1].OrderID)

	list, err = h.svc.ListUserTransactions(context.Background(), "someone-else")
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = h.svc.ListUserTransactions(context.Background(), "")
	require.True(t, apperrors.Is(err, apperrors.KindInvalidRequest))
}

func TestExpirePending(t *testing.T) {
	h := newHarness(t, []model.PaymentMethod{model.MethodPaytm})
	stale := h.initiate(t, model.MethodPaytm)
	h.now = h.now.Add(50 * time.Minute)
	fresh := h.initiate(t, model.MethodPaytm)
	h.now = h.now.Add(20 * time.Minute)

	n, err := h.svc.ExpirePending(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	tx := h.stored(t, stale.OrderID)
	require.Equal(t, model.StatusCancelled, tx.Status)
	require.Equal(t, model.GatewayExpired, tx.GatewayStatus)
	require.Equal(t, model.StatusPending, h.stored(t, fresh.OrderID).Status)

	n, err = h.svc.ExpirePending(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, h.publisher.Events())
}
