package http

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labellens/backend/internal/domain"
)

// Resolver runs one barcode resolution and streams progress events until a
// terminal result or error.
type Resolver interface {
	Resolve(ctx context.Context, barcode, titleHint string) <-chan domain.ProgressEvent
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver Resolver
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(resolver Resolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{resolver: resolver, logger: logger}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "labellens-backend",
		"version": "1.0.0",
	})
}

// resolveRequest is the body of POST /api/v1/resolve.
type resolveRequest struct {
	Barcode   string `json:"barcode" binding:"required"`
	TitleHint string `json:"titleHint"`
}

func validBarcode(barcode string) bool {
	if len(barcode) < 8 || len(barcode) > 14 {
		return false
	}
	for _, c := range barcode {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ResolveBarcode starts a resolution and streams its progress as
// server-sent events. The stream ends with a result or error event; client
// disconnect cancels the in-flight resolution.
func (h *Handler) ResolveBarcode(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode is required"})
		return
	}
	if !validBarcode(req.Barcode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode must be 8-14 digits"})
		return
	}

	h.logger.Info("resolution requested",
		zap.String("barcode", req.Barcode),
		zap.String("title_hint", req.TitleHint))

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := h.resolver.Resolve(c.Request.Context(), req.Barcode, req.TitleHint)

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(event.Kind), event)
		return event.Kind == domain.EventStatus
	})
}
