// Package events defines outbox event types emitted by the parking flows.
package events

// Event types consumed by downstream rollups and integrations.
const (
	EventSessionCheckedIn = "session.checked_in"
	EventSessionSettled   = "session.settled"
	EventPaymentRecorded  = "payment.recorded"
	EventGateObserved     = "gate.observed"
)

// SessionPayload captures the minimal data needed to react to a session
// lifecycle event.
type SessionPayload struct {
	SessionID string `json:"session_id"`
	SpaceID   string `json:"space_id"`
	LotID     string `json:"lot_id"`
	Amount    *int64 `json:"amount,omitempty"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p SessionPayload) ToMap() map[string]any {
	payload := map[string]any{
		"session_id": p.SessionID,
		"space_id":   p.SpaceID,
		"lot_id":     p.LotID,
	}
	if p.Amount != nil {
		payload["amount"] = *p.Amount
	}
	return payload
}

// GatePayload captures a recorded plate observation.
type GatePayload struct {
	GateEventID string `json:"gate_event_id"`
	LotID       string `json:"lot_id"`
	Plate       string `json:"plate"`
	Direction   string `json:"direction"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p GatePayload) ToMap() map[string]any {
	return map[string]any{
		"gate_event_id": p.GateEventID,
		"lot_id":        p.LotID,
		"plate":         p.Plate,
		"direction":     p.Direction,
	}
}
