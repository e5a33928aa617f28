package account

import (
	"net/http"
	"time"

	"github.com/wanderstay/escrow-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "not_found", "account not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, "email_taken", "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	ErrInactiveAccount    = apperror.New(http.StatusForbidden, "inactive_account", "account is inactive")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "password_too_short", "password is too short")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, "email_required", "email is required")
)

// Account represents a platform account: a traveler by default, a vendor
// operator once a vendor profile names it as owner, or an administrator.
type Account struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	IsActive     bool
	IsAdmin      bool
}
