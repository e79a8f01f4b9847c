package settings

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MohsinAliJafery/backend/internal/config"
	"github.com/MohsinAliJafery/backend/internal/model"
)

// StaticPricing resolves tier prices from configuration.
type StaticPricing struct {
	currency string
	prices   map[model.Tier]decimal.Decimal
}

func NewStaticPricing(cfg config.PricingConfig) (*StaticPricing, error) {
	raw := map[model.Tier]string{
		model.TierTrialDays: cfg.Trial,
		model.TierWeekly:    cfg.Weekly,
		model.TierMonthly:   cfg.Monthly,
		model.TierYearly:    cfg.Yearly,
	}

	prices := make(map[model.Tier]decimal.Decimal, len(raw))
	for tier, value := range raw {
		price, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", tier, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for %s must be positive, got %s", tier, value)
		}
		prices[tier] = price
	}

	if cfg.Currency == "" {
		return nil, fmt.Errorf("pricing currency is required")
	}
	return &StaticPricing{currency: cfg.Currency, prices: prices}, nil
}

func (p *StaticPricing) ResolvePrice(_ context.Context, tier model.Tier) (decimal.Decimal, string, error) {
	price, ok := p.prices[tier]
	if !ok {
		return decimal.Zero, "", fmt.Errorf("no price configured for %q", tier)
	}
	return price, p.currency, nil
}
