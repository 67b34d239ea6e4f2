package occupancy

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LotSnapshot is the rolling occupancy view of one lot, overwritten on
// every worker tick.
type LotSnapshot struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	LotID          snowflake.ID `gorm:"uniqueIndex;not null"`
	TotalSpaces    int64        `gorm:"not null"`
	OccupiedSpaces int64        `gorm:"not null"`
	ActiveSessions int64        `gorm:"not null"`
	CapturedAt     time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (LotSnapshot) TableName() string { return "lot_occupancy_snapshots" }
