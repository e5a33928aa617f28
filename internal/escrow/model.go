package escrow

import (
	"net/http"
	"time"

	"github.com/wanderstay/escrow-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "not_found", "booking not found")
	ErrInvalidState      = apperror.New(http.StatusConflict, "invalid_state", "operation not allowed in current booking status")
	ErrUnauthorized      = apperror.New(http.StatusForbidden, "unauthorized", "caller may not perform this action")
	ErrAlreadySettled    = apperror.New(http.StatusConflict, "already_settled", "booking funds already disposed")
	ErrInvalidWindow     = apperror.New(http.StatusBadRequest, "invalid_window", "check-out must be after check-in")
	ErrInvalidAmount     = apperror.New(http.StatusBadRequest, "invalid_amount", "amount must be positive")
	ErrOutOfRange        = apperror.New(http.StatusBadRequest, "out_of_range", "penalty basis points must be within 0..10000")
	ErrTooEarly          = apperror.New(http.StatusBadRequest, "too_early", "check-in time not reached")
	ErrTooLate           = apperror.New(http.StatusBadRequest, "too_late", "cancellation window has closed")
	ErrVendorUnavailable = apperror.New(http.StatusUnprocessableEntity, "vendor_unavailable", "vendor is not accepting bookings")
)

// Status is the canonical booking status enumeration.
type Status string

const (
	StatusPending   Status = "pending"    // deposited, waiting for check-in confirmation
	StatusCheckedIn Status = "checked_in" // service confirmed started
	StatusSLAFailed Status = "sla_failed" // no confirmation before the SLA deadline
	StatusDisputed  Status = "disputed"   // open dispute pauses normal release
	StatusCancelled Status = "cancelled"  // traveler cancelled inside the window
	StatusRefunded  Status = "refunded"   // funds returned to traveler (fully or penalty-adjusted)
	StatusPaid      Status = "paid"       // funds credited to vendor
)

// transitions is the authoritative state machine. A status missing from the
// map is terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusCheckedIn, StatusSLAFailed, StatusDisputed, StatusCancelled},
	StatusCheckedIn: {StatusPaid, StatusDisputed},
	StatusSLAFailed: {StatusRefunded},
	StatusDisputed:  {StatusRefunded, StatusPaid},
}

// CanTransition reports whether the state machine defines s -> to.
func (s Status) CanTransition(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Settled reports whether the booking's funds have been disposed. Disputed
// is non-terminal but Settled is equivalent to Terminal here since every
// terminal status disposes funds.
func (s Status) Settled() bool {
	return s.Terminal()
}

// PenaltyScale is the basis-point denominator for penalty refunds.
const PenaltyScale = 10000

// Booking is one traveler-to-vendor reservation with funds in custody.
// Identity fields and the deposited amount are immutable after creation.
type Booking struct {
	ID         string // UUID
	TravelerID string
	VendorID   string
	Amount     int64  // deposited value, minor units
	HoldID     string // funds-custody handle
	CheckIn    time.Time
	CheckOut   time.Time
	Buffer     time.Duration // grace period after CheckIn before SLA failure
	Status     Status
	DetailsRef string // opaque evidence-store ref for room/service details

	CancelReason   string
	RefundedAmount int64 // set at settlement; RefundedAmount+PaidAmount == Amount once terminal
	PaidAmount     int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckInDeadline is the SLA deadline: the instant after which an
// unconfirmed booking times out into SLAFailed.
func (b *Booking) CheckInDeadline() time.Time {
	return b.CheckIn.Add(b.Buffer)
}

// Deadline returns the next relevant deadline for the booking's status:
// the SLA deadline while Pending, checkout while CheckedIn. ok is false for
// disputed and settled bookings, which have no deadline.
func (b *Booking) Deadline() (time.Time, bool) {
	switch b.Status {
	case StatusPending:
		return b.CheckInDeadline(), true
	case StatusCheckedIn:
		return b.CheckOut, true
	default:
		return time.Time{}, false
	}
}

// Filter defines filter options for listing bookings.
type Filter struct {
	TravelerID string
	VendorID   string
	Status     string
	Page       int
	PageSize   int
}

// StatusUpdate carries the settlement fields written together with a status
// transition. Nil fields are left untouched.
type StatusUpdate struct {
	RefundedAmount *int64
	PaidAmount     *int64
	CancelReason   *string
}
