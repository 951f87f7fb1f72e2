package models

import "time"

// User owns at most one portfolio. The PIN is the only credential and is
// stored as a keyed hash so it can still be looked up on login.
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	PINHash   string    `gorm:"column:pin_hash;type:varchar(64);not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}
