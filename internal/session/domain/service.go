package domain

import (
	"context"
	"errors"
	"time"

	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
)

// CheckInResult is returned to the kiosk after a space is claimed.
type CheckInResult struct {
	Session     *ParkingSession
	SpaceNumber int
	LotName     string
}

// QuoteResult is the fee owed if the session settled at QuotedAt.
type QuoteResult struct {
	SessionToken    string
	EntryTime       time.Time
	QuotedAt        time.Time
	DurationMinutes int64
	Amount          int64
	Currency        string
}

// CheckoutResult is the settled session with its payment record.
type CheckoutResult struct {
	Session         *ParkingSession
	Amount          int64
	DurationMinutes int64
	Payment         *paymentdomain.PaymentRecord
}

// SettlementDetail carries everything a receipt needs.
type SettlementDetail struct {
	Session     *ParkingSession
	Payment     *paymentdomain.PaymentRecord
	LotName     string
	LotAddress  string
	SpaceNumber int
}

type Service interface {
	// CheckIn claims the space behind the QR code and opens a session.
	// A space with an active session stays untouched.
	CheckIn(ctx context.Context, qrCode string) (*CheckInResult, error)

	// Quote prices the active session as of now without changing state.
	Quote(ctx context.Context, token string) (*QuoteResult, error)

	// Complete settles the active session: prices it, records the
	// payment, frees the space and marks the session completed. At most
	// one caller wins; the rest see ErrSessionCompleted.
	Complete(ctx context.Context, token string, method string) (*CheckoutResult, error)

	// Settlement returns the completed session with its payment record.
	Settlement(ctx context.Context, token string) (*SettlementDetail, error)
}

var (
	ErrInvalidQRCode    = errors.New("invalid_qr_code")
	ErrInvalidToken     = errors.New("invalid_session_token")
	ErrSpaceNotFound    = errors.New("space_not_found")
	ErrSpaceOccupied    = errors.New("space_occupied")
	ErrSessionNotFound  = errors.New("session_not_found")
	ErrSessionCompleted = errors.New("session_completed")
	ErrSessionActive    = errors.New("session_still_active")
	ErrInvalidInterval  = errors.New("invalid_interval")
)
