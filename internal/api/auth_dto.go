package api

import (
	"time"

	"github.com/wanderstay/escrow-backend/internal/account"
)

// RegisterRequest is the payload for POST /v1/auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccountResponse is the shape of account data returned in API responses.
type AccountResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsAdmin     bool       `json:"is_admin"`
}

// RegisterResponse is the response for POST /v1/auth/register.
type RegisterResponse struct {
	Account AccountResponse `json:"account"`
}

// LoginResponse is the response for POST /v1/auth/login.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	Account     AccountResponse `json:"account"`
}

// MeResponse is the response for GET /v1/me.
type MeResponse struct {
	Account AccountResponse `json:"account"`
}

// NewAccountResponse converts domain account.Account to AccountResponse.
func NewAccountResponse(a *account.Account) AccountResponse {
	// Make a copy of time fields to avoid accidental mutation from outside.
	createdAt := a.CreatedAt
	var lastLoginAt *time.Time
	if a.LastLoginAt != nil {
		ll := *a.LastLoginAt
		lastLoginAt = &ll
	}

	return AccountResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		CreatedAt:   createdAt,
		LastLoginAt: lastLoginAt,
		IsActive:    a.IsActive,
		IsAdmin:     a.IsAdmin,
	}
}
