package controller

import (
	"context"
	"io"
	"net/http"

	"streamjudge/internal/judge/model"
	"streamjudge/internal/judge/stream"
	"streamjudge/pkg/utils/logger"
	"streamjudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runner starts judge runs and exposes the problem listing.
type Runner interface {
	Run(ctx context.Context, req model.SubmitRequest) (<-chan stream.Event, error)
	ProblemsDocument(ctx context.Context) (interface{}, error)
}

// JudgeController handles judge HTTP endpoints.
type JudgeController struct {
	runner Runner
}

// NewJudgeController creates a new JudgeController.
func NewJudgeController(runner Runner) *JudgeController {
	return &JudgeController{runner: runner}
}

// Submit handles submission requests and streams verdicts back as SSE.
// Request validation and problem resolution happen before the stream opens,
// so those failures still produce a regular JSON error response.
func (h *JudgeController) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	events, err := h.runner.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	enc := stream.NewEncoder(c.Writer)
	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		if err := enc.Encode(event); err != nil {
			logger.Warn(c.Request.Context(), "write stream event failed", zap.Error(err))
			return false
		}
		return true
	})
}

// ListProblems returns the known-problems document.
func (h *JudgeController) ListProblems(c *gin.Context) {
	doc, err := h.runner.ProblemsDocument(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, doc)
}

// Health reports process liveness.
func (h *JudgeController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
