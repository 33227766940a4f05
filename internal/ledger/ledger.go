// Package ledger implements C4 TokenLedger: the user-facing facade over
// the Store's balance operations, including first-use free-grant
// semantics. It is grounded on the teacher's AccountService, which plays
// the same role over AccountRepository.
package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tokencore/internal/model"
	"tokencore/internal/repository"
)

type Ledger struct {
	balances     *repository.BalanceRepository
	consumptions *repository.ConsumptionRepository
	freeGrant    int64
}

func New(balances *repository.BalanceRepository, consumptions *repository.ConsumptionRepository, freeGrant int64) *Ledger {
	return &Ledger{balances: balances, consumptions: consumptions, freeGrant: freeGrant}
}

// BalanceOf implements balance_of(user_key): first observation of a
// user_key creates the balance row and applies the configured free grant
// exactly once (§4.1, §8 "free-grant-once").
func (l *Ledger) BalanceOf(ctx context.Context, userKey string) (*model.UserBalance, error) {
	if userKey == "" {
		return nil, fmt.Errorf("%w: user_key is required", model.ErrValidation)
	}
	balance, _, err := l.balances.GetOrCreateBalance(ctx, userKey, l.freeGrant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return balance, nil
}

// Credit implements credit(user_key, qty): applied once per successful
// PaymentTransaction by the orchestrator, never called directly by an API
// handler. A nil tx runs standalone; CreditTx lets the orchestrator land
// the credit atomically with the transaction's status flip and outbox
// event.
func (l *Ledger) Credit(ctx context.Context, userKey string, qty int64) (*model.UserBalance, error) {
	return l.CreditTx(ctx, nil, userKey, qty)
}

func (l *Ledger) CreditTx(ctx context.Context, tx *gorm.DB, userKey string, qty int64) (*model.UserBalance, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: credit qty must be positive", model.ErrValidation)
	}
	// Ensure the row exists (and the free grant has been applied) before
	// crediting a brand-new user_key that has never called balance_of.
	if _, _, err := l.balances.GetOrCreateBalance(ctx, userKey, l.freeGrant); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	balance, err := l.balances.Credit(ctx, tx, userKey, qty, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return balance, nil
}

// TryDebit implements try_debit(user_key, qty): the race-free deduction
// ConsumptionGuard relies on. A nil tx runs standalone; TryDebitTx lets
// the guard land the debit atomically with its token.debited outbox
// event. The audit-trail append happens later, in a separate transaction.
func (l *Ledger) TryDebit(ctx context.Context, userKey string, qty int64) (*repository.DebitResult, error) {
	return l.TryDebitTx(ctx, nil, userKey, qty)
}

func (l *Ledger) TryDebitTx(ctx context.Context, tx *gorm.DB, userKey string, qty int64) (*repository.DebitResult, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: debit qty must be positive", model.ErrValidation)
	}
	if _, _, err := l.balances.GetOrCreateBalance(ctx, userKey, l.freeGrant); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	result, err := l.balances.TryDebit(ctx, tx, userKey, qty)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return result, nil
}

// AppendConsumption records a completed paid operation (§4.3).
func (l *Ledger) AppendConsumption(ctx context.Context, entry *model.ConsumptionEntry) error {
	return l.AppendConsumptionTx(ctx, nil, entry)
}

func (l *Ledger) AppendConsumptionTx(ctx context.Context, tx *gorm.DB, entry *model.ConsumptionEntry) error {
	if err := l.consumptions.Append(ctx, tx, entry); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return nil
}

// ConsumptionHistory implements the paginated history read behind
// GET /payment/balance/{user_key}/history.
func (l *Ledger) ConsumptionHistory(ctx context.Context, userKey string, limit, offset int) ([]model.ConsumptionEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := l.consumptions.ListByUserKey(ctx, userKey, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return rows, nil
}
