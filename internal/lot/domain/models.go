// Package domain contains persistence models for owners, lots and spaces.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	SpaceStatusAvailable = "available"
	SpaceStatusOccupied  = "occupied"
)

// Owner is a facility operator. Its pricing fields are the defaults a lot
// falls back to when it carries no override of its own.
type Owner struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"type:text;not null" json:"name"`
	Email string       `gorm:"type:text;not null" json:"email"`

	DefaultUnitMinutes int64 `gorm:"not null;default:60" json:"default_unit_minutes"`
	DefaultUnitAmount  int64 `gorm:"not null;default:300" json:"default_unit_amount"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Owner) TableName() string { return "owners" }

// ParkingLot is one facility. Nullable pricing columns mean "inherit from
// owner"; the daily cap is lot-scoped and has no owner fallback.
type ParkingLot struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID snowflake.ID `gorm:"not null;index" json:"owner_id"`
	Name    string       `gorm:"type:text;not null" json:"name"`
	Address string       `gorm:"type:text" json:"address"`

	PricingUnitMinutes    *int64 `gorm:"" json:"pricing_unit_minutes,omitempty"`
	PricingAmount         *int64 `gorm:"" json:"pricing_amount,omitempty"`
	MaxDailyAmount        int64  `gorm:"not null;default:0" json:"max_daily_amount"`
	MaxDailyAmountEnabled bool   `gorm:"not null;default:false" json:"max_daily_amount_enabled"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (ParkingLot) TableName() string { return "parking_lots" }

// ParkingSpace is one physical slot, addressed by the QR token printed on it.
type ParkingSpace struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	LotID       snowflake.ID `gorm:"not null;index" json:"lot_id"`
	SpaceNumber int          `gorm:"not null" json:"space_number"`
	Status      string       `gorm:"type:text;not null;default:available" json:"status"`
	QRCode      string       `gorm:"type:text;not null;uniqueIndex" json:"qr_code"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (ParkingSpace) TableName() string { return "parking_spaces" }

// MaxPricingPeriod is a time-of-day price ceiling for a lot. start_hour >
// end_hour wraps past midnight; rows are read back in insertion order.
type MaxPricingPeriod struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	LotID     snowflake.ID `gorm:"not null;index" json:"lot_id"`
	StartHour int          `gorm:"not null" json:"start_hour"`
	EndHour   int          `gorm:"not null" json:"end_hour"`
	MaxAmount int64        `gorm:"not null" json:"max_amount"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (MaxPricingPeriod) TableName() string { return "max_pricing_periods" }
