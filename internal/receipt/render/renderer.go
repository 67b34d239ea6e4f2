package render

import "time"

// RenderInput is the deterministic input used for receipt rendering.
type RenderInput struct {
	Lot     LotView
	Session SessionView
	Payment PaymentView
}

type LotView struct {
	Name    string
	Address string
}

type SessionView struct {
	Token       string
	SpaceNumber int
	EntryTime   time.Time
	ExitTime    time.Time
	Location    *time.Location
}

type PaymentView struct {
	Amount          int64
	DurationMinutes int64
	Method          string
	Provider        string
	Status          string
	Currency        string
}

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}
