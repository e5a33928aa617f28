package funds

import (
	"context"
	"errors"
)

var (
	ErrHoldNotFound     = errors.New("escrow hold not found")
	ErrInvalidAmount    = errors.New("movement amount must be positive")
	ErrInsufficientHold = errors.New("movement exceeds remaining held funds")
)

// Custody is the funds-custody primitive the escrow core settles through.
// A hold locks a payer's deposit; release pays (part of) it to a recipient,
// refund returns (part of) it to the payer. Every movement is all-or-nothing
// and a hold can never go below zero, which is what makes the conservation
// invariant (refunded + paid = amount) enforceable.
type Custody interface {
	// Hold locks amount on behalf of payer and returns the hold handle.
	Hold(ctx context.Context, payer string, amount int64) (string, error)

	// Release moves amount from the hold to the recipient (vendor payout).
	Release(ctx context.Context, holdID, recipient string, amount int64) error

	// Refund moves amount from the hold back to the recipient (traveler).
	Refund(ctx context.Context, holdID, recipient string, amount int64) error
}

// Movement kinds recorded by ledger-backed implementations.
const (
	KindRelease = "release"
	KindRefund  = "refund"
)
