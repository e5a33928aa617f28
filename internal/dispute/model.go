package dispute

import (
	"net/http"
	"time"

	"github.com/wanderstay/escrow-backend/internal/pkg/apperror"
)

var (
	ErrNotFound             = apperror.New(http.StatusNotFound, "not_found", "dispute not found")
	ErrInvalidState         = apperror.New(http.StatusConflict, "invalid_state", "dispute already resolved")
	ErrUnauthorized         = apperror.New(http.StatusForbidden, "unauthorized", "caller may not act on this dispute")
	ErrDuplicateOpenDispute = apperror.New(http.StatusConflict, "duplicate_open_dispute", "an unresolved dispute already exists for this booking")
	ErrInvalidType          = apperror.New(http.StatusBadRequest, "invalid_type", "unknown dispute type")
	ErrOutOfRange           = apperror.New(http.StatusBadRequest, "out_of_range", "reputation impact outside the allowed bound")
	ErrDescriptionRequired  = apperror.New(http.StatusBadRequest, "description_required", "dispute description is required")
)

// Type categorizes what the dispute is about.
type Type string

const (
	TypeServiceQuality    Type = "service_quality"
	TypeCancellation      Type = "cancellation"
	TypePayment           Type = "payment"
	TypePropertyCondition Type = "property_condition"
	TypeOther             Type = "other"
)

// Valid reports whether t is a known dispute type.
func (t Type) Valid() bool {
	switch t {
	case TypeServiceQuality, TypeCancellation, TypePayment, TypePropertyCondition, TypeOther:
		return true
	}
	return false
}

// Status is the dispute lifecycle: Open -> UnderReview -> Resolved.
// Resolved is terminal.
type Status string

const (
	StatusOpen        Status = "open"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
)

// Evidence is one append-only entry in a dispute's evidence list.
type Evidence struct {
	Submitter   string    // account id
	Ref         string    // evidence-store content address
	Description string
	SubmittedAt time.Time
}

// Resolution records the administrator's verdict. Present only once the
// dispute is Resolved.
type Resolution struct {
	ResolvedBy       string // admin account id
	FavorTraveler    bool
	ReputationImpact int
	Text             string
	ResolvedAt       time.Time
}

// Dispute is a disagreement over a booking. At most one unresolved dispute
// may exist per booking; the reputation impact of its resolution is applied
// to the vendor exactly once.
type Dispute struct {
	ID          string // UUID
	BookingID   string
	TravelerID  string
	VendorID    string
	RaisedBy    string // account id of the opening party
	Type        Type
	Description string
	Status      Status
	Evidence    []Evidence
	Resolution  *Resolution
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter defines filter options for listing disputes.
type Filter struct {
	BookingID string
	Status    string
	Page      int
	PageSize  int
}
