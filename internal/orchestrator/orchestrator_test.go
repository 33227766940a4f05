package orchestrator

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
		MinPurchaseMoney:   1,
		MaxPurchaseMoney:   1000,
		FreeGrantTokens:    50,
		StrictPricing:      true,
	})
}

func TestPurchase_RejectsCurrencyMismatchBeforeTouchingStorage(t *testing.T) {
	// Validation happens before the ledger/db are touched, so an
	// orchestrator with no wired dependencies still behaves correctly for
	// this path.
	o := &Orchestrator{pricing: testPricingPolicy()}

	_, err := o.Purchase(context.Background(), "user-1", 100, "USD")
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected a ValidationError for a currency mismatch, got %v", err)
	}
}

func TestPurchase_RejectsInvalidTokenQtyBeforeTouchingStorage(t *testing.T) {
	o := &Orchestrator{pricing: testPricingPolicy()}

	if _, err := o.Purchase(context.Background(), "user-1", 0, "NGN"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected a ValidationError for a non-positive token_qty, got %v", err)
	}
}

func TestIsDuplicateReference(t *testing.T) {
	if !isDuplicateReference(model.ErrDuplicateReference) {
		t.Errorf("expected ErrDuplicateReference to be recognized as a duplicate reference")
	}
	if isDuplicateReference(errors.New("some other storage error")) {
		t.Errorf("did not expect an unrelated error to be treated as a duplicate reference")
	}
}
