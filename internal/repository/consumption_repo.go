package repository

import (
	"context"

	"gorm.io/gorm"

	"tokencore/internal/model"
)

// ConsumptionRepository is the Store's audit-trail half (C1, §4.3):
// append-only inserts and paginated history reads, grounded on the
// teacher's transaction_repo.go append/list pair.
type ConsumptionRepository struct {
	db *gorm.DB
}

func NewConsumptionRepository(db *gorm.DB) *ConsumptionRepository {
	return &ConsumptionRepository{db: db}
}

// Append inserts an audit row. A nil tx runs standalone; ConsumptionGuard
// passes the enclosing transaction so the audit-trail entry and its
// token.consumed outbox event commit or roll back together. The debit has
// already committed, in an earlier transaction.
func (r *ConsumptionRepository) Append(ctx context.Context, tx *gorm.DB, entry *model.ConsumptionEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

// ListByUserKey returns consumption entries newest-first, the shape the
// balance-history endpoint (§6) exposes.
func (r *ConsumptionRepository) ListByUserKey(ctx context.Context, userKey string, limit, offset int) ([]model.ConsumptionEntry, error) {
	var rows []model.ConsumptionEntry
	err := r.db.WithContext(ctx).
		Where("user_key = ?", userKey).
		Order("consumed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
