package dispute

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/wanderstay/escrow-backend/internal/auth"
	"github.com/wanderstay/escrow-backend/internal/clock"
	"github.com/wanderstay/escrow-backend/internal/escrow"
	"github.com/wanderstay/escrow-backend/internal/events"
	"github.com/wanderstay/escrow-backend/internal/evidence"
	"github.com/wanderstay/escrow-backend/internal/pkg/keylock"
	"github.com/wanderstay/escrow-backend/internal/reputation"
)

// BookingLedger is the slice of the escrow service the dispute ledger
// drives: moving a booking into Disputed and settling it on resolution.
type BookingLedger interface {
	GetByID(ctx context.Context, id string) (*escrow.Booking, error)
	BeginDispute(ctx context.Context, id string, actor auth.Actor) (*escrow.Booking, error)
	SettleDispute(ctx context.Context, id string, favorTraveler bool) (*escrow.Booking, error)
}

// OpenRequest carries the parameters for raising a dispute.
type OpenRequest struct {
	BookingID   string
	Actor       auth.Actor
	Type        Type
	Description string
	EvidenceRef string // optional initial evidence
}

// Service is the dispute ledger. Resolution is one-shot: it settles the
// booking and applies the reputation delta exactly once.
type Service interface {
	Open(ctx context.Context, req OpenRequest) (*Dispute, error)
	GetByID(ctx context.Context, id string) (*Dispute, error)
	List(ctx context.Context, filter Filter) ([]*Dispute, int, error)
	AddEvidence(ctx context.Context, id string, actor auth.Actor, ref, description string) (*Dispute, error)
	StartReview(ctx context.Context, id string, actor auth.Actor) (*Dispute, error)
	Resolve(ctx context.Context, id string, actor auth.Actor, favorTraveler bool, resolutionText string, reputationImpact int) (*Dispute, error)
}

type service struct {
	repo      Repository
	ledger    BookingLedger
	rep       reputation.Engine
	clk       clock.Clock
	bus       events.Publisher
	maxImpact int
	locks     *keylock.KeyedMutex
}

// NewService creates the dispute ledger service. maxImpact bounds
// |reputationImpact| accepted by Resolve.
func NewService(repo Repository, ledger BookingLedger, rep reputation.Engine, clk clock.Clock, bus events.Publisher, maxImpact int) Service {
	return &service{
		repo:      repo,
		ledger:    ledger,
		rep:       rep,
		clk:       clk,
		bus:       bus,
		maxImpact: maxImpact,
		locks:     keylock.New(),
	}
}

func (s *service) Open(ctx context.Context, req OpenRequest) (*Dispute, error) {
	if !req.Type.Valid() {
		return nil, ErrInvalidType
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrDescriptionRequired
	}
	if req.EvidenceRef != "" && !evidence.ValidRef(req.EvidenceRef) {
		return nil, evidence.ErrInvalidRef
	}

	// Serialize opens per booking so the duplicate check and the record
	// creation cannot interleave.
	unlock := s.locks.Lock("booking:" + req.BookingID)
	defer unlock()

	if _, err := s.repo.GetOpenByBooking(ctx, req.BookingID); err == nil {
		return nil, ErrDuplicateOpenDispute
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	b, err := s.ledger.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, escrow.ErrNotFound) {
			return nil, escrow.ErrNotFound
		}
		return nil, err
	}

	d := &Dispute{
		BookingID:   b.ID,
		TravelerID:  b.TravelerID,
		VendorID:    b.VendorID,
		RaisedBy:    req.Actor.AccountID,
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		Status:      StatusOpen,
	}
	if req.EvidenceRef != "" {
		d.Evidence = append(d.Evidence, Evidence{
			Submitter:   req.Actor.AccountID,
			Ref:         req.EvidenceRef,
			SubmittedAt: s.clk.Now(),
		})
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	// The escrow ledger performs the authoritative state and party checks.
	// If it rejects the transition the record above must not survive.
	if _, err := s.ledger.BeginDispute(ctx, req.BookingID, req.Actor); err != nil {
		if delErr := s.repo.Delete(ctx, d.ID); delErr != nil {
			log.Printf("dispute: failed to remove record %s after rejected open: %v", d.ID, delErr)
		}
		return nil, err
	}

	s.publish(ctx, events.TypeDisputeRaised, d, string(escrow.StatusDisputed))
	return d, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Dispute, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Dispute, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) AddEvidence(ctx context.Context, id string, actor auth.Actor, ref, description string) (*Dispute, error) {
	if !evidence.ValidRef(ref) {
		return nil, evidence.ErrInvalidRef
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusResolved {
		return nil, ErrInvalidState
	}
	if !actor.IsAdmin && actor.AccountID != d.TravelerID && actor.VendorID != d.VendorID {
		return nil, ErrUnauthorized
	}

	ev := Evidence{
		Submitter:   actor.AccountID,
		Ref:         ref,
		Description: description,
		SubmittedAt: s.clk.Now(),
	}
	ok, err := s.repo.AppendEvidence(ctx, id, ev)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Resolved between the read and the write.
		return nil, ErrInvalidState
	}

	return s.repo.GetByID(ctx, id)
}

func (s *service) StartReview(ctx context.Context, id string, actor auth.Actor) (*Dispute, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusOpen {
		return nil, ErrInvalidState
	}

	ok, err := s.repo.MarkUnderReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}

	return s.repo.GetByID(ctx, id)
}

func (s *service) Resolve(ctx context.Context, id string, actor auth.Actor, favorTraveler bool, resolutionText string, reputationImpact int) (*Dispute, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	if reputationImpact > s.maxImpact || reputationImpact < -s.maxImpact {
		return nil, ErrOutOfRange
	}

	unlock := s.locks.Lock("dispute:" + id)
	defer unlock()

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusResolved {
		return nil, ErrInvalidState
	}

	// Settle the booking first: the escrow ledger's own compare-and-swap
	// guarantees the funds move at most once even if two resolvers race
	// across processes.
	b, err := s.ledger.SettleDispute(ctx, d.BookingID, favorTraveler)
	if err != nil {
		return nil, err
	}

	if _, err := s.rep.ApplyDelta(ctx, d.VendorID, reputationImpact); err != nil {
		// Funds are already disposed; surface the failure but keep going
		// so the dispute record reflects the settled booking.
		log.Printf("dispute: failed to apply reputation delta for vendor %s: %v", d.VendorID, err)
	}

	res := Resolution{
		ResolvedBy:       actor.AccountID,
		FavorTraveler:    favorTraveler,
		ReputationImpact: reputationImpact,
		Text:             resolutionText,
		ResolvedAt:       s.clk.Now(),
	}
	ok, err := s.repo.Resolve(ctx, id, res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}

	d, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeDisputeResolved, d, string(b.Status))
	return d, nil
}

// publish emits a domain event; failures are logged, never propagated.
func (s *service) publish(ctx context.Context, eventType string, d *Dispute, bookingStatus string) {
	ev := events.Event{
		Type:      eventType,
		BookingID: d.BookingID,
		DisputeID: d.ID,
		Status:    bookingStatus,
		At:        s.clk.Now(),
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		log.Printf("dispute: failed to publish %s for dispute %s: %v", eventType, d.ID, err)
	}
}
