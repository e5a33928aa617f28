package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/evidence")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.POST("", h.Upload)
		group.GET("/:ref", h.Serve)
	}
}
