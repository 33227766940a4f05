package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tokencore/internal/model"
)

var (
	ErrBalanceNotFound = errors.New("user balance not found")
	ErrOptimisticLock   = errors.New("optimistic lock conflict, retry")
)

// BalanceRepository is the Store's balance half (C1, §4.1): atomic
// create-if-absent, atomic credit, and atomic compare-and-decrement debit
// gated on a `balance >= qty` predicate, after the teacher's
// AccountRepository.Deduct/Increase. The version column is bumped on every
// write, but no WHERE clause checks it.
type BalanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

func (r *BalanceRepository) GetByUserKey(ctx context.Context, userKey string) (*model.UserBalance, error) {
	var balance model.UserBalance
	err := r.db.WithContext(ctx).Where("user_key = ?", userKey).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// GetOrCreateBalance implements get_or_create_balance(user_key, free_grant):
// an at-most-one insert wins on the unique user_key index, so two
// concurrent callers observe the same created row and the grant is applied
// exactly once.
func (r *BalanceRepository) GetOrCreateBalance(ctx context.Context, userKey string, freeGrant int64) (*model.UserBalance, bool, error) {
	existing, err := r.GetByUserKey(ctx, userKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrBalanceNotFound) {
		return nil, false, err
	}

	fresh := &model.UserBalance{
		UserKey:        userKey,
		Balance:        freeGrant,
		TotalPurchased: freeGrant,
		TotalConsumed:  0,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_key"}},
			DoNothing: true,
		}).
		Create(fresh).Error
	if err != nil {
		return nil, false, err
	}

	if fresh.ID != 0 {
		// Our insert won the race; this is the one call that applies the grant.
		return fresh, true, nil
	}

	// Another caller created the row first: return what's actually there,
	// was_created=false, so no caller double-applies the grant.
	row, err := r.GetByUserKey(ctx, userKey)
	if err != nil {
		return nil, false, err
	}
	return row, false, nil
}

// Credit implements credit(user_key, qty, purchase_at): an unconditional
// atomic increment, linearizable with TryDebit via the row's own lock. A
// nil tx runs against the repository's own connection; callers that need
// the credit to land atomically with a status flip or an outbox insert
// pass the enclosing db.Transaction's *gorm.DB instead, the same
// optional-tx idiom the teacher's AccountRepository uses.
func (r *BalanceRepository) Credit(ctx context.Context, tx *gorm.DB, userKey string, qty int64, purchaseAt time.Time) (*model.UserBalance, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.UserBalance{}).
		Where("user_key = ?", userKey).
		Updates(map[string]interface{}{
			"balance":          gorm.Expr("balance + ?", qty),
			"total_purchased":  gorm.Expr("total_purchased + ?", qty),
			"last_purchase_at": purchaseAt,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrBalanceNotFound
	}
	var balance model.UserBalance
	if err := tx.WithContext(ctx).Where("user_key = ?", userKey).First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

// DebitResult is the sum-typed outcome of TryDebit (§4.1, §9 "replace
// exceptions with an explicit sum-typed result").
type DebitResult struct {
	OK             bool
	NewBalance     int64
	CurrentBalance int64
}

// TryDebit implements try_debit(user_key, qty): a single conditional
// UPDATE ... WHERE balance >= qty guarantees balance never goes negative
// under any interleaving, the same idiom as the teacher's
// AccountRepository.Deduct. A nil tx runs standalone; ConsumptionGuard
// passes the enclosing transaction so the debit and its token.debited
// outbox insert commit or roll back together; the audit-trail row is
// appended later, in a separate transaction.
func (r *BalanceRepository) TryDebit(ctx context.Context, tx *gorm.DB, userKey string, qty int64) (*DebitResult, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.UserBalance{}).
		Where("user_key = ? AND balance >= ?", userKey, qty).
		Updates(map[string]interface{}{
			"balance":        gorm.Expr("balance - ?", qty),
			"total_consumed": gorm.Expr("total_consumed + ?", qty),
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, result.Error
	}

	var balance model.UserBalance
	if err := tx.WithContext(ctx).Where("user_key = ?", userKey).First(&balance).Error; err != nil {
		return nil, err
	}

	if result.RowsAffected == 0 {
		return &DebitResult{OK: false, CurrentBalance: balance.Balance}, nil
	}
	return &DebitResult{OK: true, NewBalance: balance.Balance}, nil
}
