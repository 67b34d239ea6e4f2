package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// ParkingSession tracks one vehicle from check-in to checkout.
// SessionToken is the opaque handle printed on the kiosk ticket.
type ParkingSession struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	SpaceID      snowflake.ID `gorm:"index;not null"`
	LotID        snowflake.ID `gorm:"index;not null"`
	SessionToken string       `gorm:"type:text;not null;uniqueIndex"`
	Status       string       `gorm:"type:text;not null;default:'active';index"`
	EntryTime    time.Time    `gorm:"not null"`
	ExitTime     *time.Time
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ParkingSession) TableName() string { return "parking_sessions" }
