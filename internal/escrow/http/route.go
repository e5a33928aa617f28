package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, middleware ...gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(middleware...)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.GET("/:id/time-remaining", h.TimeRemaining)
		group.POST("", h.Create)
		group.POST("/:id/check-in", h.CheckIn)
		group.POST("/:id/release", h.Release)
		group.POST("/:id/refund", h.Refund)
		group.POST("/:id/cancel", h.Cancel)
	}
}
