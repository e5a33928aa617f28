package escrow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wanderstay/escrow-backend/internal/auth"
	"github.com/wanderstay/escrow-backend/internal/clock"
	"github.com/wanderstay/escrow-backend/internal/events"
	"github.com/wanderstay/escrow-backend/internal/evidence"
	"github.com/wanderstay/escrow-backend/internal/funds"
	"github.com/wanderstay/escrow-backend/internal/pkg/keylock"
	"github.com/wanderstay/escrow-backend/internal/vendors"
)

// CreateRequest carries the deposit parameters for a new booking.
type CreateRequest struct {
	TravelerID string
	VendorID   string
	Amount     int64
	CheckIn    time.Time
	CheckOut   time.Time
	Buffer     time.Duration // zero selects the configured default
	DetailsRef string        // optional evidence-store ref
}

// Policy holds the deadline policy knobs.
type Policy struct {
	CancelWindow  time.Duration // free cancellation closes this long before check-in
	DefaultBuffer time.Duration
}

// Service is the escrow ledger: it owns booking records and their
// fund-custody state, and is the only writer of booking status.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)

	ConfirmCheckIn(ctx context.Context, id string, actor auth.Actor) (*Booking, error)
	ReleasePayment(ctx context.Context, id string, actor auth.Actor) (*Booking, error)
	RefundToTraveler(ctx context.Context, id string, actor auth.Actor) (*Booking, error)
	RefundWithPenalty(ctx context.Context, id string, actor auth.Actor, penaltyBps int) (*Booking, error)
	Cancel(ctx context.Context, id string, actor auth.Actor, reason string) (*Booking, error)

	// BeginDispute moves a booking into Disputed on behalf of the dispute
	// ledger. It performs the state/authorization checks; the dispute
	// record itself lives in the dispute package.
	BeginDispute(ctx context.Context, id string, actor auth.Actor) (*Booking, error)

	// SettleDispute disposes the funds of a Disputed booking per the
	// resolution outcome. Called exactly once by the dispute ledger.
	SettleDispute(ctx context.Context, id string, favorTraveler bool) (*Booking, error)

	// HandleTimeout performs the automatic transition for a booking whose
	// deadline has passed. It is idempotent: before the deadline, or in a
	// terminal/disputed state, it is a no-op reporting false.
	HandleTimeout(ctx context.Context, id string) (bool, error)

	// TimeRemaining returns the duration until the booking's next
	// deadline, zero if it has passed.
	TimeRemaining(ctx context.Context, id string) (time.Duration, error)
	IsTimedOut(ctx context.Context, id string) (bool, error)

	// DueBookingIDs lists bookings eligible for HandleTimeout at now.
	DueBookingIDs(ctx context.Context, now time.Time) ([]string, error)
}

type service struct {
	repo    Repository
	custody funds.Custody
	vendors vendor.Service
	clk     clock.Clock
	bus     events.Publisher
	policy  Policy
	locks   *keylock.KeyedMutex
}

// NewService creates the escrow ledger service.
func NewService(repo Repository, custody funds.Custody, vendors vendor.Service, clk clock.Clock, bus events.Publisher, policy Policy) Service {
	return &service{
		repo:    repo,
		custody: custody,
		vendors: vendors,
		clk:     clk,
		bus:     bus,
		policy:  policy,
		locks:   keylock.New(),
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if !req.CheckOut.After(req.CheckIn) {
		return nil, ErrInvalidWindow
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.DetailsRef != "" && !evidence.ValidRef(req.DetailsRef) {
		return nil, evidence.ErrInvalidRef
	}

	v, err := s.vendors.GetByID(ctx, req.VendorID)
	if err != nil {
		return nil, err
	}
	if !v.IsActive {
		return nil, ErrVendorUnavailable
	}

	buffer := req.Buffer
	if buffer <= 0 {
		buffer = s.policy.DefaultBuffer
	}

	// Funds move into custody atomically with record creation: if the
	// record cannot be written the hold is returned to the traveler.
	holdID, err := s.custody.Hold(ctx, req.TravelerID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to hold deposit: %w", err)
	}

	b := &Booking{
		TravelerID: req.TravelerID,
		VendorID:   req.VendorID,
		Amount:     req.Amount,
		HoldID:     holdID,
		CheckIn:    req.CheckIn.UTC(),
		CheckOut:   req.CheckOut.UTC(),
		Buffer:     buffer,
		Status:     StatusPending,
		DetailsRef: req.DetailsRef,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		if rbErr := s.custody.Refund(ctx, holdID, req.TravelerID, req.Amount); rbErr != nil {
			log.Printf("escrow: failed to return hold %s after create failure: %v", holdID, rbErr)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.publish(ctx, events.TypeBookingCreated, b, "")
	return b, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) ConfirmCheckIn(ctx context.Context, id string, actor auth.Actor) (*Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		return nil, stateError(b)
	}
	if !actor.IsAdmin && actor.AccountID != b.TravelerID && actor.VendorID != b.VendorID {
		return nil, ErrUnauthorized
	}
	if s.clk.Now().Before(b.CheckIn) {
		return nil, ErrTooEarly
	}

	return s.swap(ctx, b, StatusCheckedIn, StatusUpdate{}, events.TypeCheckedIn, "")
}

func (s *service) ReleasePayment(ctx context.Context, id string, actor auth.Actor) (*Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusCheckedIn {
		return nil, stateError(b)
	}
	if !actor.IsAdmin && actor.AccountID != b.TravelerID {
		return nil, ErrUnauthorized
	}

	return s.settle(ctx, b, StatusPaid, 0, b.Amount, events.TypePaid)
}

func (s *service) RefundToTraveler(ctx context.Context, id string, actor auth.Actor) (*Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusSLAFailed {
		return nil, stateError(b)
	}
	if !actor.IsAdmin && actor.AccountID != b.TravelerID {
		return nil, ErrUnauthorized
	}

	return s.settle(ctx, b, StatusRefunded, b.Amount, 0, events.TypeRefunded)
}

func (s *service) RefundWithPenalty(ctx context.Context, id string, actor auth.Actor, penaltyBps int) (*Booking, error) {
	if penaltyBps < 0 || penaltyBps > PenaltyScale {
		return nil, ErrOutOfRange
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusSLAFailed {
		return nil, stateError(b)
	}
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}

	// Integer basis points; the rounding remainder goes to the vendor so
	// refund + vendorShare == amount exactly.
	refund := b.Amount * int64(PenaltyScale-penaltyBps) / PenaltyScale
	vendorShare := b.Amount - refund

	return s.settle(ctx, b, StatusRefunded, refund, vendorShare, events.TypeRefunded)
}

func (s *service) Cancel(ctx context.Context, id string, actor auth.Actor, reason string) (*Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		return nil, stateError(b)
	}
	if !actor.IsAdmin && actor.AccountID != b.TravelerID {
		return nil, ErrUnauthorized
	}
	if !s.clk.Now().Before(b.CheckIn.Add(-s.policy.CancelWindow)) {
		return nil, ErrTooLate
	}

	if err := s.custody.Refund(ctx, b.HoldID, b.TravelerID, b.Amount); err != nil {
		return nil, custodyError(err)
	}

	refunded := b.Amount
	return s.swap(ctx, b, StatusCancelled,
		StatusUpdate{RefundedAmount: &refunded, CancelReason: &reason},
		events.TypeCancelled, "")
}

func (s *service) BeginDispute(ctx context.Context, id string, actor auth.Actor) (*Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending && b.Status != StatusCheckedIn {
		return nil, stateError(b)
	}
	// Only the parties themselves can raise a dispute.
	if actor.AccountID != b.TravelerID && actor.VendorID != b.VendorID {
		return nil, ErrUnauthorized
	}

	ok, err := s.repo.UpdateStatus(ctx, id, b.Status, StatusDisputed, StatusUpdate{})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	b.Status = StatusDisputed
	return b, nil
}

func (s *service) SettleDispute(ctx context.Context, id string, favorTraveler bool) (*Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusDisputed {
		return nil, stateError(b)
	}

	if favorTraveler {
		return s.settle(ctx, b, StatusRefunded, b.Amount, 0, events.TypeRefunded)
	}
	return s.settle(ctx, b, StatusPaid, 0, b.Amount, events.TypePaid)
}

func (s *service) HandleTimeout(ctx context.Context, id string) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	now := s.clk.Now()
	switch b.Status {
	case StatusPending:
		if !now.After(b.CheckInDeadline()) {
			return false, nil
		}
		if _, err := s.swap(ctx, b, StatusSLAFailed, StatusUpdate{}, events.TypeSLAFailed, ""); err != nil {
			return false, err
		}
		return true, nil

	case StatusCheckedIn:
		if now.Before(b.CheckOut) {
			return false, nil
		}
		if _, err := s.settle(ctx, b, StatusPaid, 0, b.Amount, events.TypePaid); err != nil {
			return false, err
		}
		return true, nil

	default:
		// Terminal or disputed: nothing to do.
		return false, nil
	}
}

func (s *service) TimeRemaining(ctx context.Context, id string) (time.Duration, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	deadline, ok := b.Deadline()
	if !ok {
		return 0, ErrInvalidState
	}
	if rem := deadline.Sub(s.clk.Now()); rem > 0 {
		return rem, nil
	}
	return 0, nil
}

func (s *service) IsTimedOut(ctx context.Context, id string) (bool, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	deadline, ok := b.Deadline()
	if !ok {
		return false, nil
	}
	return s.clk.Now().After(deadline), nil
}

func (s *service) DueBookingIDs(ctx context.Context, now time.Time) ([]string, error) {
	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(due))
	for i, b := range due {
		ids[i] = b.ID
	}
	return ids, nil
}

// settle moves funds out of custody and records the terminal status in one
// step. The split must satisfy refund + payout == amount; the status write
// happens only after the funds moved, and a custody failure leaves the
// status untouched.
func (s *service) settle(ctx context.Context, b *Booking, to Status, refund, payout int64, eventType string) (*Booking, error) {
	if refund > 0 {
		if err := s.custody.Refund(ctx, b.HoldID, b.TravelerID, refund); err != nil {
			return nil, custodyError(err)
		}
	}
	if payout > 0 {
		if err := s.custody.Release(ctx, b.HoldID, b.VendorID, payout); err != nil {
			return nil, custodyError(err)
		}
	}

	return s.swap(ctx, b, to,
		StatusUpdate{RefundedAmount: &refund, PaidAmount: &payout},
		eventType, "")
}

// swap performs the compare-and-swap status transition and emits the event.
func (s *service) swap(ctx context.Context, b *Booking, to Status, upd StatusUpdate, eventType, disputeID string) (*Booking, error) {
	if !b.Status.CanTransition(to) {
		return nil, stateError(b)
	}

	ok, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, to, upd)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a cross-process race.
		return nil, ErrInvalidState
	}

	b.Status = to
	if upd.RefundedAmount != nil {
		b.RefundedAmount = *upd.RefundedAmount
	}
	if upd.PaidAmount != nil {
		b.PaidAmount = *upd.PaidAmount
	}
	if upd.CancelReason != nil {
		b.CancelReason = *upd.CancelReason
	}

	s.publish(ctx, eventType, b, disputeID)
	return b, nil
}

// stateError distinguishes "funds already disposed" from "wrong phase".
func stateError(b *Booking) error {
	if b.Status.Settled() {
		return ErrAlreadySettled
	}
	return ErrInvalidState
}

// custodyError maps a drained hold to AlreadySettled; anything else is an
// infrastructure failure surfaced verbatim.
func custodyError(err error) error {
	if errors.Is(err, funds.ErrInsufficientHold) || errors.Is(err, funds.ErrHoldNotFound) {
		return ErrAlreadySettled
	}
	return fmt.Errorf("fund custody failure: %w", err)
}

// publish emits a domain event; failures are logged, never propagated.
func (s *service) publish(ctx context.Context, eventType string, b *Booking, disputeID string) {
	ev := events.Event{
		Type:      eventType,
		BookingID: b.ID,
		DisputeID: disputeID,
		Status:    string(b.Status),
		At:        s.clk.Now(),
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		log.Printf("escrow: failed to publish %s for booking %s: %v", eventType, b.ID, err)
	}
}
