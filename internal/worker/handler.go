package worker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ccbot/internal/dispatch"
	"ccbot/internal/logger"
	"ccbot/pkg/metrics"
)

// Submitter accepts a decoded task for background processing.
type Submitter interface {
	Submit(ctx context.Context, kind dispatch.Kind, data map[string]interface{})
}

// Handler is the worker's single HTTP endpoint. It acknowledges a task as
// soon as it is decoded; the work itself happens afterwards.
type Handler struct {
	tasks  Submitter
	logger logger.Logger
}

func NewHandler(tasks Submitter, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Handler{tasks: tasks, logger: log}
}

// RegisterRoutes mounts the endpoint at the router root for every method so
// that non-POST requests get a 405 from the handler.
func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.Any("/", h.HandleTask)
}

func (h *Handler) HandleTask(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.String(http.StatusMethodNotAllowed, "Expected POST")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.String(http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req dispatch.WireRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.logger.WarnwCtx(c.Request.Context(), "Rejected malformed task", "error", err)
		metrics.IncWorkerTask("invalid", "rejected")
		c.String(http.StatusBadRequest, "Invalid JSON body")
		return
	}

	kind, ok := dispatch.ParseRequestType(req.Type)
	if !ok {
		metrics.IncWorkerTask("unknown", "rejected")
		c.String(http.StatusBadRequest, "Unknown task type")
		return
	}

	metrics.IncWorkerTask(req.Type, "accepted")
	h.tasks.Submit(c.Request.Context(), kind, req.Data)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task received",
	})
}
