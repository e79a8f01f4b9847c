package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MohsinAliJafery/backend/internal/config"
	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/settings"
)

func defaultPricing() config.PricingConfig {
	return config.PricingConfig{Currency: "USD", Trial: "0.01", Weekly: "9.99", Monthly: "29.99", Yearly: "99.99"}
}

func TestStaticPricing_Resolve(t *testing.T) {
	p, err := settings.NewStaticPricing(defaultPricing())
	require.NoError(t, err)

	price, currency, err := p.ResolvePrice(context.Background(), model.TierMonthly)
	require.NoError(t, err)
	require.Equal(t, "29.99", price.StringFixed(2))
	require.Equal(t, "USD", currency)

	_, _, err = p.ResolvePrice(context.Background(), model.Tier("lifetime_sub"))
	require.Error(t, err)
}

func TestStaticPricing_RejectsBadConfig(t *testing.T) {
	cfg := defaultPricing()
	cfg.Weekly = "nine"
	_, err := settings.NewStaticPricing(cfg)
	require.Error(t, err)

	cfg = defaultPricing()
	cfg.Yearly = "0"
	_, err = settings.NewStaticPricing(cfg)
	require.Error(t, err)

	cfg = defaultPricing()
	cfg.Currency = ""
	_, err = settings.NewStaticPricing(cfg)
	require.Error(t, err)
}
