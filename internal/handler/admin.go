// Package handler exposes the admin HTTP API: pipeline triggers, job
// history, and quota/breaker status.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/models"
	"github.com/fieldshow/bandcatalog/internal/db/repository"
	"github.com/fieldshow/bandcatalog/internal/queue"
	"github.com/fieldshow/bandcatalog/internal/service/breaker"
	"github.com/fieldshow/bandcatalog/internal/service/quota"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// TriggerSyncRequest is the body of a manual sync trigger.
type TriggerSyncRequest struct {
	// Scope is "all", a band ID, or a band slug.
	Scope string `json:"scope" binding:"required"`
	// Mode is INCREMENTAL (default) or FULL.
	Mode     string `json:"mode"`
	Force    bool   `json:"force"`
	Priority *int   `json:"priority"`
}

// TriggerCleanupRequest is the body of a manual maintenance trigger.
type TriggerCleanupRequest struct {
	// Scope is "duplicates", "irrelevant", "deleted" or "all".
	Scope  string `json:"scope" binding:"required"`
	DryRun bool   `json:"dry_run"`
}

// AdminHandler handles pipeline administration requests.
type AdminHandler struct {
	queueClient *queue.Client
	jobs        repository.SyncJobRepository
	quota       *quota.Counter
	breaker     *breaker.Breaker
}

// NewAdminHandler creates a new AdminHandler instance.
func NewAdminHandler(
	queueClient *queue.Client,
	jobs repository.SyncJobRepository,
	q *quota.Counter,
	b *breaker.Breaker,
) *AdminHandler {
	return &AdminHandler{
		queueClient: queueClient,
		jobs:        jobs,
		quota:       q,
		breaker:     b,
	}
}

// TriggerSync enqueues an ingestion run and returns its audit record.
func (h *AdminHandler) TriggerSync(c *gin.Context) {
	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	mode := req.Mode
	switch mode {
	case "":
		mode = models.ModeIncremental
	case models.ModeIncremental, models.ModeFull:
	default:
		h.badRequest(c, "mode must be INCREMENTAL or FULL")
		return
	}

	priority := queue.PrioritySyncManual
	if req.Priority != nil {
		priority = *req.Priority
	}

	job, err := h.queueClient.EnqueueSync(c.Request.Context(), req.Scope, mode, req.Force, priority)
	if err != nil {
		logger.Log.Error("failed to trigger sync", zap.Error(err))
		h.serverError(c, "Failed to enqueue sync job")
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// TriggerCleanup enqueues a maintenance run.
func (h *AdminHandler) TriggerCleanup(c *gin.Context) {
	var req TriggerCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	taskID, err := h.queueClient.EnqueueCleanup(c.Request.Context(), req.Scope, req.DryRun)
	if err != nil {
		if errors.Is(err, queue.ErrAlreadyQueued) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Timestamp: time.Now(),
				Status:    http.StatusConflict,
				Error:     "Conflict",
				Message:   err.Error(),
				Path:      c.Request.URL.Path,
			})
			return
		}
		logger.Log.Warn("failed to trigger cleanup",
			zap.String("scope", req.Scope),
			zap.Error(err),
		)
		h.badRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": taskID,
		"scope":   req.Scope,
		"dry_run": req.DryRun,
	})
}

// GetJob returns one sync job audit record by ID.
func (h *AdminHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.badRequest(c, "Invalid job ID")
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Timestamp: time.Now(),
				Status:    http.StatusNotFound,
				Error:     "Not Found",
				Message:   "Sync job not found",
				Path:      c.Request.URL.Path,
			})
			return
		}
		logger.Log.Error("failed to load sync job", zap.Error(err))
		h.serverError(c, "Failed to load sync job")
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs returns the sync job history, newest first.
func (h *AdminHandler) ListJobs(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.jobs.List(c.Request.Context(), limit, offset)
	if err != nil {
		logger.Log.Error("failed to list sync jobs", zap.Error(err))
		h.serverError(c, "Failed to list sync jobs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"limit":  limit,
		"offset": offset,
	})
}

// QuotaStatus returns the current quota window and breaker state.
func (h *AdminHandler) QuotaStatus(c *gin.Context) {
	used, limit, resetsAt := h.quota.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"quota": gin.H{
			"used":      used,
			"limit":     limit,
			"remaining": limit - used,
			"resets_at": resetsAt,
		},
		"breaker": gin.H{
			"state": h.breaker.State(),
		},
	})
}

func (h *AdminHandler) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Timestamp: time.Now(),
		Status:    http.StatusBadRequest,
		Error:     "Bad Request",
		Message:   message,
		Path:      c.Request.URL.Path,
	})
}

func (h *AdminHandler) serverError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Timestamp: time.Now(),
		Status:    http.StatusInternalServerError,
		Error:     "Internal Server Error",
		Message:   message,
		Path:      c.Request.URL.Path,
	})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
