package events

import (
	"context"
	"time"
)

// Domain event types emitted on every booking/dispute transition.
const (
	TypeBookingCreated  = "booking.created"
	TypeCheckedIn       = "booking.checked_in"
	TypeSLAFailed       = "booking.sla_failed"
	TypeCancelled       = "booking.cancelled"
	TypeRefunded        = "booking.refunded"
	TypePaid            = "booking.paid"
	TypeDisputeRaised   = "dispute.raised"
	TypeDisputeResolved = "dispute.resolved"
)

// Event carries the booking/dispute id and the status entered by a
// transition. Observers (UI, notification workers) subscribe to these;
// the core never depends on anyone consuming them.
type Event struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id"`
	DisputeID string    `json:"dispute_id,omitempty"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// Publisher delivers domain events to observers. Publishing is best-effort:
// callers log failures and never roll back a state transition over them.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}
