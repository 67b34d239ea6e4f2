package domain

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ChargeParams describes the settlement of one parking session.
type ChargeParams struct {
	LotID           snowflake.ID
	SessionID       snowflake.ID
	SessionToken    string
	Amount          int64
	DurationMinutes int64
	Method          string
}

type Service interface {
	// ChargeTx settles a session inside the caller's transaction. Cash
	// settles immediately; electronic methods create a provider charge
	// first and record its outcome.
	ChargeTx(ctx context.Context, tx *gorm.DB, params ChargeParams) (*PaymentRecord, error)

	// IngestWebhook verifies, parses and applies one provider webhook.
	// Replayed events are detected by (provider, provider_event_id).
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidConfig         = errors.New("invalid_config")
	ErrInvalidMethod         = errors.New("invalid_method")
	ErrChargeFailed          = errors.New("charge_failed")
	ErrDuplicateCharge       = errors.New("duplicate_charge")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrEncryptionKeyMissing  = errors.New("encryption_key_missing")
)
