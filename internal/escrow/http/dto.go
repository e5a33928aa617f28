package http

import (
	"time"

	"github.com/wanderstay/escrow-backend/internal/escrow"
)

type BookingResponse struct {
	ID         string    `json:"id"`
	TravelerID string    `json:"traveler_id"`
	VendorID   string    `json:"vendor_id"`
	Amount     int64     `json:"amount"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	BufferSecs int64     `json:"buffer_seconds"`
	Status     string    `json:"status"`
	DetailsRef string    `json:"details_ref,omitempty"`

	CancelReason   string `json:"cancel_reason,omitempty"`
	RefundedAmount int64  `json:"refunded_amount"`
	PaidAmount     int64  `json:"paid_amount"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewBookingResponse(b *escrow.Booking) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		TravelerID:     b.TravelerID,
		VendorID:       b.VendorID,
		Amount:         b.Amount,
		CheckIn:        b.CheckIn,
		CheckOut:       b.CheckOut,
		BufferSecs:     int64(b.Buffer.Seconds()),
		Status:         string(b.Status),
		DetailsRef:     b.DetailsRef,
		CancelReason:   b.CancelReason,
		RefundedAmount: b.RefundedAmount,
		PaidAmount:     b.PaidAmount,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

type CreateBookingBody struct {
	VendorID   string    `json:"vendor_id" binding:"required,uuid"`
	Amount     int64     `json:"amount" binding:"required"`
	CheckIn    time.Time `json:"check_in" binding:"required"`
	CheckOut   time.Time `json:"check_out" binding:"required"`
	BufferSecs int64     `json:"buffer_seconds" binding:"omitempty,min=0"`
	DetailsRef string    `json:"details_ref" binding:"omitempty"`
}

type CancelBookingBody struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type RefundBookingBody struct {
	// PenaltyBps withholds amount*bps/10000 for the vendor. Only
	// administrators may set it; zero or absent means a full refund.
	PenaltyBps int `json:"penalty_bps" binding:"omitempty,min=0,max=10000"`
}

type TimeRemainingResponse struct {
	RemainingSeconds int64 `json:"remaining_seconds"`
	TimedOut         bool  `json:"timed_out"`
}
