package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, actorMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/vendors")

	// === Public Routes ===
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	// === Authenticated Routes ===
	authed := group.Group("")
	authed.Use(authMiddleware)
	{
		authed.POST("", h.Register)
		authed.GET("/me", h.Me)
	}

	// === Admin Routes ===
	admin := group.Group("")
	admin.Use(authMiddleware, actorMiddleware, adminMiddleware)
	{
		admin.PATCH("/:id/status", h.SetStatus)
	}
}
