package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/openlotlabs/torii/pkg/db/pagination"
)

const (
	DirectionEntry = "entry"
	DirectionExit  = "exit"
)

// GateEvent is one plate observation reported by a lot's LPR camera. An exit
// observation points at the entry it closes via PairedEventID.
type GateEvent struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	LotID         snowflake.ID      `gorm:"index;not null"`
	Plate         string            `gorm:"type:text;not null;index"`
	Direction     string            `gorm:"type:text;not null"`
	ObservedAt    time.Time         `gorm:"not null"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	PairedEventID *snowflake.ID     `gorm:"index"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (GateEvent) TableName() string { return "gate_events" }

// IngestRequest is one camera report.
type IngestRequest struct {
	LotID      snowflake.ID   `json:"lot_id,string"`
	Plate      string         `json:"plate"`
	Direction  string         `json:"direction"`
	ObservedAt time.Time      `json:"observed_at"`
	Metadata   map[string]any `json:"metadata"`
}

type ListFilter struct {
	LotID     snowflake.ID
	Plate     string
	Direction string
	Page      pagination.Request
}

type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*GateEvent, error)
	List(ctx context.Context, filter ListFilter) ([]GateEvent, pagination.PageInfo, error)
}

var (
	ErrInvalidLot       = errors.New("invalid_lot")
	ErrInvalidPlate     = errors.New("invalid_plate")
	ErrInvalidDirection = errors.New("invalid_direction")
)
