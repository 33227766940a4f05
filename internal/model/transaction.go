package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending    = "PENDING"
	TransactionStatusSuccessful = "SUCCESSFUL"
	TransactionStatusFailed     = "FAILED"
	TransactionStatusCancelled  = "CANCELLED"
)

// validTransitions mirrors the teacher's order state machine: a row may
// move from pending to exactly one terminal state, never back.
var validTransitions = map[string][]string{
	TransactionStatusPending: {TransactionStatusSuccessful, TransactionStatusFailed, TransactionStatusCancelled},
}

func CanTransitionTo(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PaymentTransaction is one row per purchase attempt. Reference is the
// idempotency key for verify and for credit (§4.5 of the core design).
type PaymentTransaction struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	Reference      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference"`
	UserKey        string          `gorm:"type:varchar(128);index;not null" json:"user_key"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency       string          `gorm:"type:varchar(8);not null" json:"currency"`
	TokenQty       int64           `gorm:"not null" json:"token_qty"`
	Status         string          `gorm:"type:varchar(16);index;not null" json:"status"`
	GatewayPayload string          `gorm:"type:text" json:"-"`
	CreditApplied  bool            `gorm:"not null;default:false" json:"-"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transaction"
}
