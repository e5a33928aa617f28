package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wanderstay/escrow-backend/internal/account"
	"github.com/wanderstay/escrow-backend/internal/auth"
	"github.com/wanderstay/escrow-backend/internal/dispute"
	disputeHttp "github.com/wanderstay/escrow-backend/internal/dispute/http"
	"github.com/wanderstay/escrow-backend/internal/escrow"
	escrowHttp "github.com/wanderstay/escrow-backend/internal/escrow/http"
	"github.com/wanderstay/escrow-backend/internal/evidence"
	evidenceHttp "github.com/wanderstay/escrow-backend/internal/evidence/http"
	"github.com/wanderstay/escrow-backend/internal/scheduler"
	"github.com/wanderstay/escrow-backend/internal/vendors"
	vendorHttp "github.com/wanderstay/escrow-backend/internal/vendors/http"
)

// RouterDeps collects the services the router wires into handlers.
type RouterDeps struct {
	AccountService account.Service
	VendorService  vendor.Service
	EscrowService  escrow.Service
	DisputeService dispute.Service
	EvidenceStore  evidence.Store
	Sweeper        *scheduler.Scheduler
	JWTManager     *auth.JWTManager
	AllowOrigins   []string
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = deps.AllowOrigins
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"http://localhost:8081"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	// authMiddleware: Validates if the request contains a valid JWT.
	// actorMiddleware: Resolves the account into an Actor (vendor link, admin flag).
	authMiddleware := auth.AuthRequired(deps.JWTManager)
	actorMiddleware := ResolveActor(deps.AccountService, deps.VendorService)
	adminMiddleware := RequireAdmin()

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	authHandler := NewAuthHandler(deps.AccountService, deps.JWTManager)
	adminHandler := NewAdminHandler(deps.Sweeper)
	vendorHandler := vendorHttp.NewHandler(deps.VendorService)
	escrowHandler := escrowHttp.NewHandler(deps.EscrowService)
	disputeHandler := disputeHttp.NewHandler(deps.DisputeService)
	evidenceHandler := evidenceHttp.NewHandler(deps.EvidenceStore)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)
		v1.GET("/me", authMiddleware, authHandler.Me)

		// Escrow and dispute operations need the full actor context (vendor
		// link, admin flag), not just a valid token.
		vendorHttp.RegisterRoutes(v1, vendorHandler, authMiddleware, actorMiddleware, adminMiddleware)
		escrowHttp.RegisterRoutes(v1, escrowHandler, authMiddleware, actorMiddleware)
		disputeHttp.RegisterRoutes(v1, disputeHandler, authMiddleware, actorMiddleware)
		evidenceHttp.RegisterRoutes(v1, evidenceHandler, authMiddleware)

		admin := v1.Group("/admin")
		admin.Use(authMiddleware, actorMiddleware, adminMiddleware)
		{
			admin.POST("/timeout-sweep", adminHandler.TimeoutSweep)
		}
	}

	return r
}
