package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// CriticalOutboxEventTypes are the token.* event types that accompany a
// balance mutation (credit or debit) rather than a status-only
// transition. A message of one of these types that exhausts its retries
// represents a balance the downstream ledger mirror/billing consumers
// never learned about, which OutboxSender treats as worth escalating
// past a plain retry-exhausted log line.
var CriticalOutboxEventTypes = map[string]bool{
	"token.credited": true,
	"token.debited":  true,
	"token.consumed": true,
}

type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	EventType  string    `gorm:"type:varchar(32);index" json:"event_type"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
