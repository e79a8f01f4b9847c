package adapters

import (
	"context"
	"errors"

	"github.com/MohsinAliJafery/backend/internal/checksum"
	"github.com/MohsinAliJafery/backend/internal/config"
	"github.com/MohsinAliJafery/backend/internal/model"
)

const defaultMobile = "9999999999"

// PaytmAdapter builds the signed form parameters the browser posts to PayTM.
type PaytmAdapter struct {
	cfg         config.PaytmConfig
	callbackURL string
	signer      *checksum.Signer
}

func NewPaytmAdapter(cfg config.PaytmConfig, callbackURL string, signer *checksum.Signer) (*PaytmAdapter, error) {
	if cfg.MerchantID == "" {
		return nil, errors.New("paytm merchant id is required")
	}
	return &PaytmAdapter{cfg: cfg, callbackURL: callbackURL, signer: signer}, nil
}

func (p *PaytmAdapter) Name() model.PaymentMethod {
	return model.MethodPaytm
}

func (p *PaytmAdapter) Initiate(_ context.Context, tx *model.Transaction, customer model.Customer) (*model.GatewayInitiation, error) {
	mobile := customer.Phone
	if mobile == "" {
		mobile = defaultMobile
	}

	params := checksum.Params{
		"MID":              p.cfg.MerchantID,
		"ORDER_ID":         tx.OrderID,
		"CUST_ID":          tx.UserID,
		"INDUSTRY_TYPE_ID": p.cfg.IndustryTypeID,
		"CHANNEL_ID":       p.cfg.ChannelID,
		"TXN_AMOUNT":       tx.Amount.StringFixed(2),
		"WEBSITE":          p.cfg.Website,
		"CALLBACK_URL":     p.callbackURL,
		"EMAIL":            customer.Email,
		"MOBILE_NO":        mobile,
	}

	sig, err := p.signer.Sign(params)
	if err != nil {
		return nil, err
	}
	params[checksum.FieldName] = sig

	return &model.GatewayInitiation{
		PaymentID: tx.OrderID,
		Params:    params,
	}, nil
}
