package escrow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by the test suite. The
// compare-and-swap semantics of UpdateStatus match the pgx implementation.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Booking
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Booking)}
}

func (r *MemoryRepository) Create(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	cp := *b
	r.byID[b.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryRepository) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Booking
	for _, b := range r.byID {
		if filter.TravelerID != "" && b.TravelerID != filter.TravelerID {
			continue
		}
		if filter.VendorID != "" && b.VendorID != filter.VendorID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, from, to Status, upd StatusUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if b.Status != from {
		return false, nil
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
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryRepository) ListDue(_ context.Context, now time.Time) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var due []*Booking
	for _, b := range r.byID {
		switch b.Status {
		case StatusPending:
			if now.After(b.CheckInDeadline()) {
				cp := *b
				due = append(due, &cp)
			}
		case StatusCheckedIn:
			if !now.Before(b.CheckOut) {
				cp := *b
				due = append(due, &cp)
			}
		}
	}
	return due, nil
}
