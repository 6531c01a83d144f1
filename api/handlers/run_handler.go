package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tunegrab-go/internal/app"
	"github.com/yourusername/tunegrab-go/internal/domain"
	"go.uber.org/zap"
)

// RunHandler handles run-related HTTP requests
type RunHandler struct {
	queueMgr *app.QueueManager
	runMgr   *app.RunManager
	logger   *zap.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(queueMgr *app.QueueManager, runMgr *app.RunManager, logger *zap.Logger) *RunHandler {
	return &RunHandler{
		queueMgr: queueMgr,
		runMgr:   runMgr,
		logger:   logger,
	}
}

// AddRunRequest represents a request to queue a run
type AddRunRequest struct {
	URL         string `json:"url" binding:"required"`
	Kind        string `json:"kind,omitempty"`
	OutputDir   string `json:"output_dir,omitempty"`
	Quality     string `json:"quality,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
}

// AddRun handles POST /api/v1/runs
func (h *RunHandler) AddRun(c *gin.Context) {
	var req AddRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Auto-detect kind if not provided
	kind := domain.RefKind(req.Kind)
	if kind != "" && !domain.ValidateRefKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference kind"})
		return
	}

	run, err := h.queueMgr.AddRun(req.URL, kind, req.OutputDir, req.Quality, req.Concurrency)
	if err != nil {
		h.logger.Error("Failed to add run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, run)
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.queueMgr.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	// Parse query parameters for filtering
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if kind := c.Query("kind"); kind != "" {
		filters["kind"] = kind
	}

	runs, err := h.queueMgr.ListRuns(filters)
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runs)
}

// GetStats handles GET /api/v1/runs/stats
func (h *RunHandler) GetStats(c *gin.Context) {
	stats, err := h.queueMgr.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelRun handles POST /api/v1/runs/:id/cancel
func (h *RunHandler) CancelRun(c *gin.Context) {
	id := c.Param("id")

	if err := h.runMgr.CancelRun(id); err != nil {
		h.logger.Error("Failed to cancel run", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "run cancelled"})
}

// RetryRun handles POST /api/v1/runs/:id/retry
func (h *RunHandler) RetryRun(c *gin.Context) {
	id := c.Param("id")

	if err := h.runMgr.RetryRun(id); err != nil {
		h.logger.Error("Failed to retry run", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "run queued for retry"})
}

// DeleteRun handles DELETE /api/v1/runs/:id
func (h *RunHandler) DeleteRun(c *gin.Context) {
	id := c.Param("id")

	if err := h.queueMgr.DeleteRun(id); err != nil {
		h.logger.Error("Failed to delete run", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "run deleted"})
}
