package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// CreateLotRequest provisions a lot and its numbered spaces in one call.
type CreateLotRequest struct {
	OwnerID    snowflake.ID `json:"owner_id,string"`
	Name       string       `json:"name"`
	Address    string       `json:"address"`
	SpaceCount int          `json:"space_count"`
}

// UpdatePricingRequest replaces a lot's pricing fields and period rows.
type UpdatePricingRequest struct {
	PricingUnitMinutes    *int64              `json:"pricing_unit_minutes"`
	PricingAmount         *int64              `json:"pricing_amount"`
	MaxDailyAmount        int64               `json:"max_daily_amount"`
	MaxDailyAmountEnabled bool                `json:"max_daily_amount_enabled"`
	Periods               []TimePeriodRequest `json:"periods"`
}

// TimePeriodRequest is one max-price window in an update.
type TimePeriodRequest struct {
	StartHour int   `json:"start_hour"`
	EndHour   int   `json:"end_hour"`
	MaxAmount int64 `json:"max_amount"`
}

type Service interface {
	Create(ctx context.Context, req CreateLotRequest) (*ParkingLot, error)
	Get(ctx context.Context, id snowflake.ID) (*ParkingLot, error)
	List(ctx context.Context, ownerID snowflake.ID) ([]ParkingLot, error)
	Spaces(ctx context.Context, lotID snowflake.ID) ([]ParkingSpace, error)
	UpdatePricing(ctx context.Context, lotID snowflake.ID, req UpdatePricingRequest) (*ParkingLot, error)
}

var (
	ErrLotNotFound      = errors.New("lot_not_found")
	ErrOwnerNotFound    = errors.New("owner_not_found")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidSpaceCnt  = errors.New("invalid_space_count")
	ErrInvalidUnit      = errors.New("invalid_unit_minutes")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidDailyCap  = errors.New("invalid_daily_cap")
	ErrInvalidHourRange = errors.New("invalid_hour_range")
)
