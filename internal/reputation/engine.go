// Package reputation applies dispute outcomes to vendor scores.
//
// The engine is deliberately thin: it is a pure function of the stored score
// and the delta, with clamping to the allowed range. At-most-once
// application is the caller's responsibility (the dispute ledger's one-shot
// resolve).
package reputation

import (
	"context"

	"github.com/wanderstay/escrow-backend/internal/vendors"
)

// Engine adjusts vendor reputation scores.
type Engine interface {
	// ApplyDelta adds delta to the vendor's score, clamping the result to
	// [vendor.MinReputation, vendor.MaxReputation], and returns the new score.
	ApplyDelta(ctx context.Context, vendorID string, delta int) (int, error)
}

type engine struct {
	vendors vendor.Repository
}

// NewEngine creates a reputation Engine over the vendor store.
func NewEngine(vendors vendor.Repository) Engine {
	return &engine{vendors: vendors}
}

func (e *engine) ApplyDelta(ctx context.Context, vendorID string, delta int) (int, error) {
	if delta == 0 {
		v, err := e.vendors.GetByID(ctx, vendorID)
		if err != nil {
			return 0, err
		}
		return v.ReputationScore, nil
	}
	return e.vendors.AdjustReputation(ctx, vendorID, delta)
}
