package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
	EventTypeRefunded         = "payment.refunded"
)

const (
	ChargeStatusPending   = "pending"
	ChargeStatusSucceeded = "succeeded"
	ChargeStatusFailed    = "failed"
	ChargeStatusCanceled  = "canceled"
	ChargeStatusRefunded  = "refunded"
)

const (
	MethodCash = "cash"
	MethodCard = "card"
	MethodQR   = "qr"
)

// CurrencyJPY is the only settlement currency.
const CurrencyJPY = "JPY"

// PaymentRecord is the settled charge for a completed parking session.
// One record per session.
type PaymentRecord struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	SessionID        snowflake.ID `gorm:"uniqueIndex;not null"`
	LotID            snowflake.ID `gorm:"index;not null"`
	Amount           int64        `gorm:"not null"`
	DurationMinutes  int64        `gorm:"not null"`
	Method           string       `gorm:"type:text;not null"`
	Provider         string       `gorm:"type:text"`
	ProviderChargeID string       `gorm:"type:text"`
	Status           string       `gorm:"type:text;not null"`
	Currency         string       `gorm:"type:text;not null;default:'JPY'"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PaymentRecord) TableName() string { return "payment_records" }

// EventRecord stores a received provider webhook for idempotent processing.
type EventRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	LotID           snowflake.ID   `gorm:"index"`
	Provider        string         `gorm:"type:text;not null;uniqueIndex:idx_payment_events_provider_event,priority:1"`
	ProviderEventID string         `gorm:"type:text;not null;uniqueIndex:idx_payment_events_provider_event,priority:2"`
	EventType       string         `gorm:"type:text;not null"`
	ChargeID        string         `gorm:"type:text"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt      time.Time      `gorm:"not null"`
	ProcessedAt     *time.Time
}

// TableName sets the database table name.
func (EventRecord) TableName() string { return "payment_events" }

// ProviderConfig holds per-lot credentials for one payment provider.
// The config column is encrypted at rest when a secret is configured.
type ProviderConfig struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	LotID     snowflake.ID   `gorm:"uniqueIndex:idx_provider_configs_lot_provider,priority:1;not null"`
	Provider  string         `gorm:"type:text;uniqueIndex:idx_provider_configs_lot_provider,priority:2;not null"`
	Config    datatypes.JSON `gorm:"type:jsonb;not null"`
	IsActive  bool           `gorm:"not null;default:true"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ProviderConfig) TableName() string { return "payment_provider_configs" }

// PaymentEvent is a provider webhook parsed into a normalized shape.
type PaymentEvent struct {
	LotID           snowflake.ID
	Provider        string
	ProviderEventID string
	Type            string
	ChargeID        string
	Amount          int64
	Currency        string
	OccurredAt      time.Time
}
