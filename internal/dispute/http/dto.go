package http

import (
	"time"

	"github.com/wanderstay/escrow-backend/internal/dispute"
)

type EvidenceResponse struct {
	Submitter   string    `json:"submitter"`
	Ref         string    `json:"ref"`
	Description string    `json:"description,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ResolutionResponse struct {
	ResolvedBy       string    `json:"resolved_by"`
	FavorTraveler    bool      `json:"favor_traveler"`
	ReputationImpact int       `json:"reputation_impact"`
	Text             string    `json:"text,omitempty"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

type DisputeResponse struct {
	ID          string              `json:"id"`
	BookingID   string              `json:"booking_id"`
	TravelerID  string              `json:"traveler_id"`
	VendorID    string              `json:"vendor_id"`
	RaisedBy    string              `json:"raised_by"`
	Type        string              `json:"type"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	Evidence    []EvidenceResponse  `json:"evidence"`
	Resolution  *ResolutionResponse `json:"resolution,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func NewDisputeResponse(d *dispute.Dispute) DisputeResponse {
	resp := DisputeResponse{
		ID:          d.ID,
		BookingID:   d.BookingID,
		TravelerID:  d.TravelerID,
		VendorID:    d.VendorID,
		RaisedBy:    d.RaisedBy,
		Type:        string(d.Type),
		Description: d.Description,
		Status:      string(d.Status),
		Evidence:    make([]EvidenceResponse, len(d.Evidence)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for i, ev := range d.Evidence {
		resp.Evidence[i] = EvidenceResponse{
			Submitter:   ev.Submitter,
			Ref:         ev.Ref,
			Description: ev.Description,
			SubmittedAt: ev.SubmittedAt,
		}
	}
	if d.Resolution != nil {
		resp.Resolution = &ResolutionResponse{
			ResolvedBy:       d.Resolution.ResolvedBy,
			FavorTraveler:    d.Resolution.FavorTraveler,
			ReputationImpact: d.Resolution.ReputationImpact,
			Text:             d.Resolution.Text,
			ResolvedAt:       d.Resolution.ResolvedAt,
		}
	}
	return resp
}

type OpenDisputeBody struct {
	BookingID   string `json:"booking_id" binding:"required,uuid"`
	Type        string `json:"type" binding:"required"`
	Description string `json:"description" binding:"required,max=2000"`
	EvidenceRef string `json:"evidence_ref" binding:"omitempty"`
}

type AddEvidenceBody struct {
	Ref         string `json:"ref" binding:"required"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

type ResolveDisputeBody struct {
	FavorTraveler    bool   `json:"favor_traveler"`
	ReputationImpact int    `json:"reputation_impact"`
	Text             string `json:"text" binding:"omitempty,max=2000"`
}
