package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wanderstay/escrow-backend/internal/auth"
	"github.com/wanderstay/escrow-backend/internal/dispute"
	"github.com/wanderstay/escrow-backend/internal/pkg/response"
)

type Handler struct {
	service dispute.Service
}

func NewHandler(service dispute.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Open(c *gin.Context) {
	var body OpenDisputeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	d, err := h.service.Open(c.Request.Context(), dispute.OpenRequest{
		BookingID:   body.BookingID,
		Actor:       actor,
		Type:        dispute.Type(body.Type),
		Description: body.Description,
		EvidenceRef: body.EvidenceRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewDisputeResponse(d))
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	d, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	if !actor.IsAdmin && actor.AccountID != d.TravelerID && actor.VendorID != d.VendorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	c.JSON(http.StatusOK, NewDisputeResponse(d))
}

func (h *Handler) List(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	if !actor.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	disputes, total, err := h.service.List(c.Request.Context(), dispute.Filter{
		BookingID: c.Query("booking_id"),
		Status:    c.Query("status"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]DisputeResponse, len(disputes))
	for i, d := range disputes {
		items[i] = NewDisputeResponse(d)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, page, pageSize, total))
}

func (h *Handler) AddEvidence(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body AddEvidenceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	d, err := h.service.AddEvidence(c.Request.Context(), id, actor, body.Ref, body.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewDisputeResponse(d))
}

func (h *Handler) StartReview(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	actor, _ := auth.GetActor(c)
	d, err := h.service.StartReview(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewDisputeResponse(d))
}

func (h *Handler) Resolve(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body ResolveDisputeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	actor, _ := auth.GetActor(c)
	d, err := h.service.Resolve(c.Request.Context(), id, actor, body.FavorTraveler, body.Text, body.ReputationImpact)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewDisputeResponse(d))
}
