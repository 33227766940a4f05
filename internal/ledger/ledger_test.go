package ledger

import (
	"context"
	"errors"
	"testing"

	"tokencore/internal/model"
)

func TestBalanceOf_RejectsEmptyUserKey(t *testing.T) {
	l := New(nil, nil, 50)

	if _, err := l.BalanceOf(context.Background(), ""); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected a ValidationError for an empty user_key, got %v", err)
	}
}

func TestCreditTx_RejectsNonPositiveQty(t *testing.T) {
	l := New(nil, nil, 50)

	tests := []int64{0, -1, -100}
	for _, qty := range tests {
		if _, err := l.CreditTx(context.Background(), nil, "user-1", qty); !errors.Is(err, model.ErrValidation) {
			t.Errorf("CreditTx(qty=%d) error = %v, want a ValidationError", qty, err)
		}
	}
}

func TestTryDebitTx_RejectsNonPositiveQty(t *testing.T) {
	l := New(nil, nil, 50)

	tests := []int64{0, -1, -100}
	for _, qty := range tests {
		if _, err := l.TryDebitTx(context.Background(), nil, "user-1", qty); !errors.Is(err, model.ErrValidation) {
			t.Errorf("TryDebitTx(qty=%d) error = %v, want a ValidationError", qty, err)
		}
	}
}
