package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"tokencore/internal/model"
)

var ErrTransactionNotFound = errors.New("payment transaction not found")

// TransactionRepository is the Store's payment-transaction half (C1, §4.2),
// grounded on the teacher's OrderRepository/TransactionRepository pair —
// here merged into one table since the core has no separate product order.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert implements insert_transaction(reference, user_key, amount, ...).
// Reference collisions (extremely unlikely given the §4.5 generator, but
// possible) surface as ErrDuplicateReference so the orchestrator can retry
// with a freshly generated reference. A nil gdb runs standalone; Purchase
// passes the enclosing transaction so the row and its outbox event commit
// together.
func (r *TransactionRepository) Insert(ctx context.Context, gdb *gorm.DB, payment *model.PaymentTransaction) error {
	if gdb == nil {
		gdb = r.db
	}
	err := gdb.WithContext(ctx).Create(payment).Error
	if err != nil {
		if isDuplicateKeyErr(err) {
			return model.ErrDuplicateReference
		}
		return err
	}
	return nil
}

// GetByReference reads a transaction row. A nil gdb reads from the
// repository's own connection; Verify passes the enclosing transaction
// when it needs to re-check a row's actual status after a conditional
// UpdateStatus call reported no match, so the re-read observes the same
// view of the row the UPDATE did.
func (r *TransactionRepository) GetByReference(ctx context.Context, gdb *gorm.DB, reference string) (*model.PaymentTransaction, error) {
	if gdb == nil {
		gdb = r.db
	}
	var tx model.PaymentTransaction
	err := gdb.WithContext(ctx).Where("reference = ?", reference).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// UpdateStatus implements update_transaction_status(reference, status,
// gateway_payload, completed_at?) (§4.1, §4.2, §7 "a transaction settles
// at most once"): the WHERE clause only matches rows still in fromStatus,
// so a second caller racing the same reference affects zero rows instead
// of clobbering the first caller's outcome — the same idiom as the
// teacher's OrderRepository.UpdateStatus. gatewayPayload is the raw body
// gateway.Verify returned for this call; pass "" when there is none (the
// TTL sweep cancelling a transaction the gateway was never asked about).
func (r *TransactionRepository) UpdateStatus(ctx context.Context, gdb *gorm.DB, reference, fromStatus, toStatus, gatewayPayload string) (bool, error) {
	if gdb == nil {
		gdb = r.db
	}
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return false, nil
	}
	updates := map[string]interface{}{
		"status":       toStatus,
		"completed_at": gorm.Expr("NOW()"),
	}
	if gatewayPayload != "" {
		updates["gateway_payload"] = gatewayPayload
	}
	result := gdb.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("reference = ? AND status = ?", reference, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCreditApplied flips the reconciliation flag (§7 OPTIONAL refinement)
// once, conditionally, so a retried credit step after a crash can detect
// it already ran.
func (r *TransactionRepository) MarkCreditApplied(ctx context.Context, gdb *gorm.DB, reference string) (bool, error) {
	if gdb == nil {
		gdb = r.db
	}
	result := gdb.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("reference = ? AND credit_applied = ?", reference, false).
		Update("credit_applied", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPendingOlderThan returns PENDING transactions older than the TTL
// cutoff, for the background sweep job (grounded on the teacher's
// OrderTimeoutJob scan-and-expire loop).
func (r *TransactionRepository) ListPendingOlderThan(ctx context.Context, cutoffUnix int64, limit int) ([]model.PaymentTransaction, error) {
	var rows []model.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND UNIX_TIMESTAMP(created_at) < ?", model.TransactionStatusPending, cutoffUnix).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListSuccessfulUnapplied returns SUCCESSFUL rows whose credit_applied flag
// is still false (Verify sets the flag in the same transaction as the
// status flip and the credit, so these rows reached SUCCESSFUL some other
// way); the reconciliation job drains this list (SPEC_FULL.md
// SUPPLEMENTED FEATURES).
func (r *TransactionRepository) ListSuccessfulUnapplied(ctx context.Context, limit int) ([]model.PaymentTransaction, error) {
	var rows []model.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND credit_applied = ?", model.TransactionStatusSuccessful, false).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func isDuplicateKeyErr(err error) bool {
	// MySQL duplicate-entry errors surface through gorm as a generic error;
	// string-sniffing the driver message is the same approach the teacher's
	// repository layer uses rather than importing the mysql driver error type.
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "1062")
}
