// Package pricing implements the pure, I/O-free conversions between money
// and tokens (C3 in the core design). Nothing here touches the network or
// the store — every function is a deterministic computation over a
// PricingConfig snapshot.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tokencore/internal/config"
	"tokencore/internal/model"
)

// Policy is the process-wide pricing snapshot, read-only after construction.
type Policy struct {
	cfg config.PricingConfig
}

func New(cfg config.PricingConfig) *Policy {
	return &Policy{cfg: cfg}
}

// TokensFor implements tokens_for(amount) = floor(amount * tokens_per_unit_money).
func (p *Policy) TokensFor(amount decimal.Decimal) int64 {
	rate := decimal.NewFromFloat(p.cfg.TokensPerUnitMoney)
	return amount.Mul(rate).Floor().IntPart()
}

// AmountFor implements amount_for(token_qty), the exact inverse of TokensFor
// at two-decimal precision. When strict pricing is configured, a token
// quantity that does not divide cleanly by the configured rate is rejected
// (Open Question resolution in SPEC_FULL.md: we implement strict integer
// pricing, not floor-and-donate, as the default).
func (p *Policy) AmountFor(tokenQty int64) (decimal.Decimal, error) {
	rate := decimal.NewFromFloat(p.cfg.TokensPerUnitMoney)
	if rate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: tokens_per_unit_money is zero", model.ErrValidation)
	}
	amount := decimal.NewFromInt(tokenQty).Div(rate).Round(2)

	if p.cfg.StrictPricing {
		reconverted := amount.Mul(rate).Floor().IntPart()
		if reconverted != tokenQty {
			return decimal.Zero, fmt.Errorf("%w: %d tokens does not divide cleanly at the configured rate", model.ErrValidation, tokenQty)
		}
	}
	return amount, nil
}

// CostOf returns the token cost of a service_kind, or an error if the kind
// is unknown (a ValidationError per §7).
func (p *Policy) CostOf(serviceKind string) (int64, error) {
	cost, ok := p.cfg.ServiceCosts[serviceKind]
	if !ok {
		return 0, fmt.Errorf("%w: unknown service_kind %q", model.ErrValidation, serviceKind)
	}
	return cost, nil
}

// ValidatePurchaseAmount rejects amounts outside
// [min_purchase_money, max_purchase_money].
func (p *Policy) ValidatePurchaseAmount(amount decimal.Decimal) error {
	min := decimal.NewFromFloat(p.cfg.MinPurchaseMoney)
	max := decimal.NewFromFloat(p.cfg.MaxPurchaseMoney)
	if amount.LessThan(min) {
		return fmt.Errorf("%w: amount %s is below minimum purchase amount %s", model.ErrValidation, amount.String(), min.String())
	}
	if amount.GreaterThan(max) {
		return fmt.Errorf("%w: amount %s exceeds maximum purchase amount %s", model.ErrValidation, amount.String(), max.String())
	}
	return nil
}

// ValidatePurchaseTokenQty validates a requested token quantity by
// converting it to money first, so the same bounds apply regardless of
// which unit the caller specifies.
func (p *Policy) ValidatePurchaseTokenQty(tokenQty int64) (decimal.Decimal, error) {
	if tokenQty <= 0 {
		return decimal.Zero, fmt.Errorf("%w: token_qty must be positive", model.ErrValidation)
	}
	amount, err := p.AmountFor(tokenQty)
	if err != nil {
		return decimal.Zero, err
	}
	if err := p.ValidatePurchaseAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// Currency returns the single supported currency code.
func (p *Policy) Currency() string {
	return p.cfg.Currency
}

// FreeGrantTokens returns the number of tokens granted on first observation
// of a user_key.
func (p *Policy) FreeGrantTokens() int64 {
	return p.cfg.FreeGrantTokens
}

// ServiceCosts returns a copy of the configured per-service token costs, for
// the pricing info endpoint.
func (p *Policy) ServiceCosts() map[string]int64 {
	out := make(map[string]int64, len(p.cfg.ServiceCosts))
	for k, v := range p.cfg.ServiceCosts {
		out[k] = v
	}
	return out
}

func (p *Policy) MinPurchaseMoney() decimal.Decimal {
	return decimal.NewFromFloat(p.cfg.MinPurchaseMoney)
}

func (p *Policy) MaxPurchaseMoney() decimal.Decimal {
	return decimal.NewFromFloat(p.cfg.MaxPurchaseMoney)
}

// TokensPerUnitMoney returns the configured conversion rate (§6
// tokens_per_unit_money), the raw rate TokensFor/AmountFor apply.
func (p *Policy) TokensPerUnitMoney() decimal.Decimal {
	return decimal.NewFromFloat(p.cfg.TokensPerUnitMoney)
}
