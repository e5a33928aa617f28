package vendor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by the test suite.
type MemoryRepository struct {
	mu        sync.RWMutex
	byID      map[string]*Vendor
	idByOwner map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:      make(map[string]*Vendor),
		idByOwner: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, v *Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.idByOwner[v.OwnerID]; ok {
		return ErrAlreadyOwner
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	cp := *v
	r.byID[v.ID] = &cp
	r.idByOwner[v.OwnerID] = v.ID
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *MemoryRepository) GetByOwner(_ context.Context, ownerID string) (*Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByOwner[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *MemoryRepository) List(_ context.Context, filter Filter) ([]*Vendor, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Vendor
	for _, v := range r.byID {
		if filter.IsActive != nil && v.IsActive != *filter.IsActive {
			continue
		}
		if filter.IsVerified != nil && v.IsVerified != *filter.IsVerified {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *MemoryRepository) Update(_ context.Context, v *Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[v.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = v.Name
	cur.Description = v.Description
	cur.IsVerified = v.IsVerified
	cur.IsActive = v.IsActive
	cur.UpdatedAt = time.Now().UTC()
	v.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *MemoryRepository) AdjustReputation(_ context.Context, id string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	score := v.ReputationScore + delta
	if score > MaxReputation {
		score = MaxReputation
	}
	if score < MinReputation {
		score = MinReputation
	}
	v.ReputationScore = score
	v.UpdatedAt = time.Now().UTC()
	return score, nil
}
