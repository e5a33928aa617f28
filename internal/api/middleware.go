package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wanderstay/escrow-backend/internal/account"
	"github.com/wanderstay/escrow-backend/internal/auth"
	"github.com/wanderstay/escrow-backend/internal/vendors"
)

// ResolveActor loads the authenticated account and its vendor profile (if
// any) and stores the resulting Actor for downstream authorization checks.
// It MUST be used after auth.AuthRequired middleware.
func ResolveActor(accountService account.Service, vendorService vendor.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := auth.GetAccountID(c)
		if accountID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		a, err := accountService.GetByID(c.Request.Context(), accountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		if !a.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		actor := auth.Actor{AccountID: a.ID, IsAdmin: a.IsAdmin}

		v, err := vendorService.GetByOwner(c.Request.Context(), a.ID)
		if err == nil {
			actor.VendorID = v.ID
		} else if !errors.Is(err, vendor.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve vendor profile"})
			return
		}

		auth.SetActor(c, actor)
		c.Next()
	}
}

// RequireAdmin ensures the resolved actor has administrator privileges.
// It MUST be used after ResolveActor middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := auth.GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !actor.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: admin access required"})
			return
		}

		c.Next()
	}
}
