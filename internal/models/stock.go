package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is a tracked symbol inside a portfolio. Metric columns are NULL when
// the quote provider could not supply them; they are never stored as zero.
type Stock struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PortfolioID uint64 `gorm:"not null;uniqueIndex:idx_stocks_portfolio_symbol" json:"portfolio_id"`
	Symbol      string `gorm:"type:varchar(5);not null;uniqueIndex:idx_stocks_portfolio_symbol" json:"symbol"`

	LastPrice    *decimal.Decimal `gorm:"column:last_price;type:numeric(20,6)" json:"last_price"`
	MA200        *decimal.Decimal `gorm:"column:ma_200;type:numeric(20,6)" json:"ma_200"`
	DistanceToMA *decimal.Decimal `gorm:"column:distance_to_ma;type:numeric(12,2)" json:"distance_to_ma"`
	LastChecked  *time.Time       `gorm:"column:last_checked;index" json:"last_checked"`

	// NotificationSent latches once an alert went out for the current dip.
	NotificationSent bool       `gorm:"column:notification_sent;not null;default:false" json:"notification_sent"`
	LastMABreakDate  *time.Time `gorm:"column:last_ma_break_date" json:"last_ma_break_date"`
	DaysSinceMABreak *int       `gorm:"column:days_since_ma_break" json:"days_since_ma_break"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Stock) TableName() string {
	return "stocks"
}

// Due reports whether the stock should be refreshed by the scheduled pass.
func (s Stock) Due(now time.Time, interval time.Duration) bool {
	if s.LastChecked == nil || s.LastChecked.IsZero() {
		return true
	}
	return now.Sub(*s.LastChecked) >= interval
}
