package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wanderstay/escrow-backend/internal/account"
	"github.com/wanderstay/escrow-backend/internal/auth"
)

type AuthHandler struct {
	accountService account.Service
	jwtManager     *auth.JWTManager
}

func NewAuthHandler(
	accountService account.Service,
	jwtManager *auth.JWTManager,
) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
		jwtManager:     jwtManager,
	}
}

//
// POST /v1/auth/register
//

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()

	a, err := h.accountService.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch err {
		case account.ErrEmailAlreadyUsed:
			c.JSON(http.StatusConflict, gin.H{"error": "email already used"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	resp := RegisterResponse{
		Account: NewAccountResponse(a),
	}

	c.JSON(http.StatusCreated, resp)
}

//
// POST /v1/auth/login
//

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()

	a, err := h.accountService.Login(ctx, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid email or password",
		})
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(a.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to generate token",
		})
		return
	}

	resp := LoginResponse{
		AccessToken: token,
		Account:     NewAccountResponse(a),
	}

	c.JSON(http.StatusOK, resp)
}

//
// GET /v1/me
//

func (h *AuthHandler) Me(c *gin.Context) {
	accountID := auth.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()

	a, err := h.accountService.GetByID(ctx, accountID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
		return
	}

	resp := MeResponse{
		Account: NewAccountResponse(a),
	}

	c.JSON(http.StatusOK, resp)
}
