package model

import "time"

// UserBalance is the per-user token ledger row. balance = total_purchased -
// total_consumed must hold at every externally observable moment; writers
// are allowed to violate it transiently inside a single atomic update, never
// across one.
type UserBalance struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserKey         string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"user_key"`
	Balance         int64      `gorm:"not null;default:0" json:"balance"`
	TotalPurchased  int64      `gorm:"not null;default:0" json:"total_purchased"`
	TotalConsumed   int64      `gorm:"not null;default:0" json:"total_consumed"`
	Version         int        `gorm:"not null;default:0" json:"-"`
	LastPurchaseAt  *time.Time `json:"last_purchase_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserBalance) TableName() string {
	return "user_balance"
}
