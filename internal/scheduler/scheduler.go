package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/wanderstay/escrow-backend/internal/clock"
)

// Ledger is the slice of the escrow service the scheduler drives.
type Ledger interface {
	DueBookingIDs(ctx context.Context, now time.Time) ([]string, error)
	HandleTimeout(ctx context.Context, id string) (bool, error)
}

// Scheduler periodically sweeps the escrow ledger for bookings whose
// deadline has passed and applies the automatic transition to each.
// HandleTimeout is idempotent, so overlapping sweeps and races with user
// actions are harmless.
type Scheduler struct {
	ledger   Ledger
	clk      clock.Clock
	interval time.Duration
}

func New(ledger Ledger, clk clock.Clock, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{ledger: ledger, clk: clk, interval: interval}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("scheduler: timeout sweep running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Printf("scheduler: sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs a single pass and returns how many bookings transitioned.
// A failure on one booking is logged and does not stop the pass.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	ids, err := s.ledger.DueBookingIDs(ctx, s.clk.Now())
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, id := range ids {
		ok, err := s.ledger.HandleTimeout(ctx, id)
		if err != nil {
			log.Printf("scheduler: timeout handling for booking %s failed: %v", id, err)
			continue
		}
		if ok {
			fired++
		}
	}
	return fired, nil
}
