package domain

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
)

// ChargeRequest describes a charge to create against a provider.
type ChargeRequest struct {
	SessionToken string
	Amount       int64
	Currency     string
	Description  string
}

// Charge is the provider-side view of a created charge.
type Charge struct {
	ProviderChargeID string
	Status           string
	Amount           int64
	Currency         string
}

// Adapter talks to one payment provider for one lot's credentials.
type Adapter interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	ConfirmCharge(ctx context.Context, providerChargeID string) (*Charge, error)
	CancelCharge(ctx context.Context, providerChargeID string) error
	GetStatus(ctx context.Context, providerChargeID string) (string, error)

	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

type AdapterConfig struct {
	LotID    snowflake.ID
	Provider string
	Config   map[string]any
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(config AdapterConfig) (Adapter, error)
}
