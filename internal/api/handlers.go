package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CurationsLA/lemon/internal/domain"
	"github.com/CurationsLA/lemon/internal/ghost"
	"github.com/CurationsLA/lemon/internal/pipeline"
	"github.com/CurationsLA/lemon/internal/store"
)

// Orchestrator is the pipeline surface the handlers depend on.
type Orchestrator interface {
	SourceContent(ctx context.Context, req pipeline.SourceRequest) (*pipeline.SourceResult, error)
	CreateDraft(ctx context.Context, req domain.DraftRequest) (*domain.DraftResult, error)
}

// BatchReader is the store surface for batch retrieval endpoints.
type BatchReader interface {
	Get(ctx context.Context, key string) (*domain.ContentBatch, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Handler holds the API handlers' dependencies.
type Handler struct {
	orchestrator Orchestrator
	batches      BatchReader
}

// NewHandler creates the API handler set.
func NewHandler(orchestrator Orchestrator, batches BatchReader) *Handler {
	return &Handler{orchestrator: orchestrator, batches: batches}
}

// SourceContent handles POST /api/v1/content/source. The body is optional;
// an empty body runs the configured registry with defaults.
func (h *Handler) SourceContent(c *gin.Context) {
	var req pipeline.SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := h.orchestrator.SourceContent(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"batch_id":     result.BatchID,
		"date_key":     result.DateKey,
		"item_count":   result.ItemCount,
		"failed_feeds": result.FailedFeeds,
	})
}

// CreateDraft handles POST /api/v1/drafts.
func (h *Handler) CreateDraft(c *gin.Context) {
	var req domain.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := h.orchestrator.CreateDraft(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"post_id":    result.PostID,
		"editor_url": result.EditorURL,
		"batch_id":   result.BatchID,
	})
}

// GetBatch handles GET /api/v1/batches/:key.
func (h *Handler) GetBatch(c *gin.Context) {
	batch, err := h.batches.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// ListBatches handles GET /api/v1/batches?prefix=.
func (h *Handler) ListBatches(c *gin.Context) {
	keys, err := h.batches.List(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys, "count": len(keys)})
}

// respondError maps pipeline and store errors onto HTTP responses:
// validation errors are client errors, a missing batch is a 404 distinct
// from internal errors, and a CMS rejection surfaces the upstream status.
func respondError(c *gin.Context, err error) {
	var apiErr *ghost.APIError

	switch {
	case errors.Is(err, pipeline.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, pipeline.ErrPublishingDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"success":         false,
			"error":           apiErr.Message,
			"upstream_status": apiErr.StatusCode,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}
