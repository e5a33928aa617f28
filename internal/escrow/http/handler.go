package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wanderstay/escrow-backend/internal/auth"
	"github.com/wanderstay/escrow-backend/internal/escrow"
	"github.com/wanderstay/escrow-backend/internal/pkg/response"
)

type Handler struct {
	service escrow.Service
}

func NewHandler(service escrow.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	b, err := h.service.Create(c.Request.Context(), escrow.CreateRequest{
		TravelerID: actor.AccountID,
		VendorID:   body.VendorID,
		Amount:     body.Amount,
		CheckIn:    body.CheckIn,
		CheckOut:   body.CheckOut,
		Buffer:     time.Duration(body.BufferSecs) * time.Second,
		DetailsRef: body.DetailsRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	actor, _ := auth.GetActor(c)

	filter := escrow.Filter{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	}

	// Administrators may filter freely; everyone else sees only bookings
	// they are a party to.
	if actor.IsAdmin {
		filter.TravelerID = c.Query("traveler_id")
		filter.VendorID = c.Query("vendor_id")
	} else if actor.VendorID != "" && c.Query("as_vendor") == "true" {
		filter.VendorID = actor.VendorID
	} else {
		filter.TravelerID = actor.AccountID
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, page, pageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	if !actor.IsAdmin && actor.AccountID != b.TravelerID && actor.VendorID != b.VendorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) CheckIn(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id string, actor auth.Actor) (*escrow.Booking, error) {
		return h.service.ConfirmCheckIn(ctx.Request.Context(), id, actor)
	})
}

func (h *Handler) Release(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id string, actor auth.Actor) (*escrow.Booking, error) {
		return h.service.ReleasePayment(ctx.Request.Context(), id, actor)
	})
}

func (h *Handler) Refund(c *gin.Context) {
	var body RefundBookingBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	h.transition(c, func(ctx *gin.Context, id string, actor auth.Actor) (*escrow.Booking, error) {
		if body.PenaltyBps > 0 {
			return h.service.RefundWithPenalty(ctx.Request.Context(), id, actor, body.PenaltyBps)
		}
		return h.service.RefundToTraveler(ctx.Request.Context(), id, actor)
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	var body CancelBookingBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	h.transition(c, func(ctx *gin.Context, id string, actor auth.Actor) (*escrow.Booking, error) {
		return h.service.Cancel(ctx.Request.Context(), id, actor, body.Reason)
	})
}

func (h *Handler) TimeRemaining(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	remaining, err := h.service.TimeRemaining(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	timedOut, err := h.service.IsTimedOut(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, TimeRemainingResponse{
		RemainingSeconds: int64(remaining.Seconds()),
		TimedOut:         timedOut,
	})
}

// transition factors the shared id/actor plumbing of the status endpoints.
func (h *Handler) transition(c *gin.Context, fn func(*gin.Context, string, auth.Actor) (*escrow.Booking, error)) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	b, err := fn(c, id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}
