package vendor

import (
	"net/http"
	"time"

	"github.com/wanderstay/escrow-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(http.StatusNotFound, "not_found", "vendor not found")
	ErrNameRequired = apperror.New(http.StatusBadRequest, "name_required", "vendor name is required")
	ErrAlreadyOwner = apperror.New(http.StatusConflict, "already_owner", "account already operates a vendor profile")
)

// Reputation score bounds. Scores are clamped into this range no matter how
// large a dispute's reputation impact is.
const (
	MinReputation     = 0
	MaxReputation     = 100
	InitialReputation = 50
)

// Vendor is a service provider that receives escrowed bookings. The
// reputation score is mutated only through the reputation engine; the
// verification and activation flags only through admin endpoints.
type Vendor struct {
	ID              string // UUID
	OwnerID         string // account operating this vendor
	Name            string
	Description     *string
	ReputationScore int
	IsVerified      bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Filter defines filter options for listing vendors.
type Filter struct {
	IsActive   *bool
	IsVerified *bool
	Page       int
	PageSize   int
}
