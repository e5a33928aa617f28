package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, middleware ...gin.HandlerFunc) {
	group := g.Group("/disputes")

	// === Authenticated Routes ===
	group.Use(middleware...)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Open)
		group.POST("/:id/evidence", h.AddEvidence)
		group.POST("/:id/review", h.StartReview)
		group.POST("/:id/resolve", h.Resolve)
	}
}
