package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerTest      = "test"
	TriggerRefresh   = "refresh"
)

// AlertDelivery records one attempt to hand an alert to the configured sink.
type AlertDelivery struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PortfolioID uint64  `gorm:"not null;index" json:"portfolio_id"`
	StockID     *uint64 `gorm:"index" json:"stock_id,omitempty"`
	Symbol      string  `gorm:"type:varchar(5);not null" json:"symbol"`
	Recipient   string  `gorm:"type:varchar(255);not null" json:"recipient"`
	Channel     string  `gorm:"type:varchar(64);not null" json:"channel"`
	Trigger     string  `gorm:"column:triggered_by;type:varchar(16);not null" json:"trigger"`
	Success     bool    `gorm:"not null" json:"success"`

	// Payload holds the merge tags that were sent.
	Payload datatypes.JSON `json:"payload"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AlertDelivery) TableName() string {
	return "alert_deliveries"
}
