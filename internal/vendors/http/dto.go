package http

import (
	"time"

	"github.com/wanderstay/escrow-backend/internal/vendors"
)

type VendorResponse struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	ReputationScore int       `json:"reputation_score"`
	IsVerified      bool      `json:"is_verified"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewVendorResponse(v *vendor.Vendor) VendorResponse {
	return VendorResponse{
		ID:              v.ID,
		OwnerID:         v.OwnerID,
		Name:            v.Name,
		Description:     v.Description,
		ReputationScore: v.ReputationScore,
		IsVerified:      v.IsVerified,
		IsActive:        v.IsActive,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

type RegisterVendorBody struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"omitempty,max=1000"`
}

type UpdateVendorStatusBody struct {
	IsActive   *bool `json:"is_active"`
	IsVerified *bool `json:"is_verified"`
}
