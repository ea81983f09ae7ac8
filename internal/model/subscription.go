package model

import "time"

// Subscription is a user's standing request for the daily menu.
// Hour and Minute are wall-clock values in the operator's local zone.
type Subscription struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	Hour      int   `gorm:"not null"`
	Minute    int   `gorm:"not null"`
	CreatedAt time.Time
}
