package funds

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memHold struct {
	payer     string
	amount    int64
	remaining int64
}

// MemoryCustody is an in-process Custody used by tests and brokerless dev
// runs. It additionally tracks per-account balances so tests can assert
// conservation end to end.
type MemoryCustody struct {
	mu       sync.Mutex
	holds    map[string]*memHold
	balances map[string]int64
}

func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{
		holds:    make(map[string]*memHold),
		balances: make(map[string]int64),
	}
}

func (c *MemoryCustody) Hold(_ context.Context, payer string, amount int64) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.New().String()
	c.holds[id] = &memHold{payer: payer, amount: amount, remaining: amount}
	c.balances[payer] -= amount
	return id, nil
}

func (c *MemoryCustody) Release(ctx context.Context, holdID, recipient string, amount int64) error {
	return c.move(holdID, recipient, amount)
}

func (c *MemoryCustody) Refund(ctx context.Context, holdID, recipient string, amount int64) error {
	return c.move(holdID, recipient, amount)
}

func (c *MemoryCustody) move(holdID, recipient string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.holds[holdID]
	if !ok {
		return ErrHoldNotFound
	}
	if amount > h.remaining {
		return ErrInsufficientHold
	}
	h.remaining -= amount
	c.balances[recipient] += amount
	return nil
}

// Balance returns the net movement for an account (negative while funds are
// held in escrow).
func (c *MemoryCustody) Balance(account string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[account]
}

// Remaining returns the funds still held under a hold, or -1 if unknown.
func (c *MemoryCustody) Remaining(holdID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.holds[holdID]; ok {
		return h.remaining
	}
	return -1
}
