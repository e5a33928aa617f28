package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wanderstay/escrow-backend/internal/scheduler"
)

// AdminHandler exposes operational endpoints for administrators.
type AdminHandler struct {
	sweeper *scheduler.Scheduler
}

func NewAdminHandler(sweeper *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

//
// POST /v1/admin/timeout-sweep
//

// TimeoutSweep triggers one sweep pass immediately instead of waiting for
// the next scheduled tick.
func (h *AdminHandler) TimeoutSweep(c *gin.Context) {
	fired, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transitioned": fired})
}
