package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wanderstay/escrow-backend/internal/evidence"
	"github.com/wanderstay/escrow-backend/internal/pkg/response"
)

// maxBlobSize caps uploads at 16 MiB.
const maxBlobSize = 16 << 20

type Handler struct {
	store evidence.Store
}

func NewHandler(store evidence.Store) *Handler {
	return &Handler{store: store}
}

// Upload stores the uploaded file and returns its content address. The blob
// is opaque to the service; the ref is what booking details and dispute
// evidence entries point at.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxBlobSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()

	ref, err := h.store.Put(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{Ref: ref})
}

// Serve streams the blob behind a content address.
func (h *Handler) Serve(c *gin.Context) {
	ref := c.Param("ref")
	if !evidence.ValidRef(ref) {
		response.Error(c, evidence.ErrInvalidRef)
		return
	}

	stream, err := h.store.Get(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", "attachment; filename=\""+ref+"\"")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		// Response already started; nothing useful to send.
		return
	}
}
