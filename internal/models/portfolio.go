package models

import "time"

const DefaultPollingRateHours = 24

type Portfolio struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint64 `gorm:"not null;uniqueIndex" json:"user_id"`
	Name   string `gorm:"type:varchar(120);not null" json:"name"`
	// PollingRate is the number of hours between checks of each stock.
	PollingRate int       `gorm:"not null;default:24" json:"polling_rate"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Stocks []Stock `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE" json:"stocks,omitempty"`
}

func (Portfolio) TableName() string {
	return "portfolios"
}

func (p Portfolio) PollingInterval() time.Duration {
	hours := p.PollingRate
	if hours <= 0 {
		hours = DefaultPollingRateHours
	}
	return time.Duration(hours) * time.Hour
}
