package dispute

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by the test suite. The
// conditional-write semantics match the pgx implementation.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Dispute
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Dispute)}
}

func (r *MemoryRepository) Create(_ context.Context, d *Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.byID {
		if cur.BookingID == d.BookingID && cur.Status != StatusResolved {
			return ErrDuplicateOpenDispute
		}
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	cp := clone(d)
	r.byID[d.ID] = cp
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(d), nil
}

func (r *MemoryRepository) GetOpenByBooking(_ context.Context, bookingID string) (*Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.byID {
		if d.BookingID == bookingID && d.Status != StatusResolved {
			return clone(d), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context, filter Filter) ([]*Dispute, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Dispute
	for _, d := range r.byID {
		if filter.BookingID != "" && d.BookingID != filter.BookingID {
			continue
		}
		if filter.Status != "" && string(d.Status) != filter.Status {
			continue
		}
		out = append(out, clone(d))
	}
	return out, len(out), nil
}

func (r *MemoryRepository) AppendEvidence(_ context.Context, id string, ev Evidence) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status == StatusResolved {
		return false, nil
	}
	d.Evidence = append(d.Evidence, ev)
	d.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryRepository) MarkUnderReview(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status != StatusOpen {
		return false, nil
	}
	d.Status = StatusUnderReview
	d.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryRepository) Resolve(_ context.Context, id string, res Resolution) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status == StatusResolved {
		return false, nil
	}
	d.Status = StatusResolved
	cp := res
	d.Resolution = &cp
	d.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func clone(d *Dispute) *Dispute {
	cp := *d
	cp.Evidence = append([]Evidence(nil), d.Evidence...)
	if d.Resolution != nil {
		res := *d.Resolution
		cp.Resolution = &res
	}
	return &cp
}
