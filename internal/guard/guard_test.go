package guard

import (
	"context"
	"errors"
	"testing"

	"tokencore/internal/config"
	"tokencore/internal/model"
	"tokencore/internal/pricing"
)

func testPricingPolicy() *pricing.Policy {
	return pricing.New(config.PricingConfig{
		Currency:           "NGN",
		TokensPerUnitMoney: 10,
		ServiceCosts: map[string]int64{
			"profile": 5,
		},
	})
}

func TestConsume_RejectsUnknownServiceKindBeforeTouchingStorage(t *testing.T) {
	// CostOf fails before the db/ledger are ever touched, so a Guard with
	// no wired dependencies still behaves correctly for this path.
	g := &Guard{pricing: testPricingPolicy()}

	called := false
	_, _, err := g.Consume(context.Background(), "user-1", "unknown_kind", "work-1", "", func(ctx context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})

	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected a ValidationError for an unknown service_kind, got %v", err)
	}
	if called {
		t.Errorf("do_work must not run when the service_kind cannot be priced")
	}
}
