package model

import "time"

const (
	ServiceKindAnalysis         = "analysis"
	ServiceKindTransform        = "transform"
	ServiceKindPremiumInsights  = "premium_insights"
)

var ValidServiceKinds = map[string]bool{
	ServiceKindAnalysis:        true,
	ServiceKindTransform:       true,
	ServiceKindPremiumInsights: true,
}

// ConsumptionEntry is append-only: one row per paid operation, never
// mutated after insert.
type ConsumptionEntry struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserKey     string    `gorm:"type:varchar(128);index:idx_user_consumed,priority:1;not null" json:"user_key"`
	TokenQty    int64     `gorm:"not null" json:"token_qty"`
	ServiceKind string    `gorm:"type:varchar(32);not null" json:"service_kind"`
	WorkItemID  string    `gorm:"type:varchar(64)" json:"work_item_id,omitempty"`
	Description string    `gorm:"type:varchar(256)" json:"description,omitempty"`
	ConsumedAt  time.Time `gorm:"autoCreateTime;index:idx_user_consumed,priority:2,sort:desc" json:"consumed_at"`
}

func (ConsumptionEntry) TableName() string {
	return "consumption_entry"
}
