package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/docforge/internal/application/engine"
	"github.com/aescanero/docforge/pkg/domain"
)

// RunSubmitRequest represents a run submission request
type RunSubmitRequest struct {
	Context *domain.ProjectContext `json:"context" binding:"required"`
}

// RunSubmitResponse represents a run submission response
type RunSubmitResponse struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submitted_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"engine": "ok",
		},
	})
}

// handleSubmitRun handles run submission
func (s *Server) handleSubmitRun(c *gin.Context) {
	var req RunSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	runID, err := s.runs.Submit(c.Request.Context(), req.Context)
	if err != nil {
		s.logger.Error("failed to submit run", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SUBMISSION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, RunSubmitResponse{
		RunID:       runID,
		Status:      string(engine.RunStatusRunning),
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListRuns handles listing tracked runs
func (s *Server) handleListRuns(c *gin.Context) {
	states := s.runs.List()

	c.JSON(http.StatusOK, gin.H{
		"runs":  states,
		"total": len(states),
	})
}

// handleGetRun handles getting run details
func (s *Server) handleGetRun(c *gin.Context) {
	runID := c.Param("id")

	state, err := s.runs.Get(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Run not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, state)
}

// handleGetReport handles getting the final run report
func (s *Server) handleGetReport(c *gin.Context) {
	runID := c.Param("id")

	state, err := s.runs.Get(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Run not found",
			},
		})
		return
	}

	if state.Status == engine.RunStatusRunning {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_COMPLETED",
				Message: "Run not yet completed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":       state.ID,
		"status":       state.Status,
		"report":       state.Report,
		"completed_at": state.CompletedAt,
	})
}

// handleCancelRun handles run cancellation
func (s *Server) handleCancelRun(c *gin.Context) {
	runID := c.Param("id")

	if err := s.runs.Cancel(runID); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:    "CANCELLATION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":       runID,
		"status":       string(engine.RunStatusCancelled),
		"cancelled_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGetOrder returns the resolved execution order of the loaded registry
func (s *Server) handleGetOrder(c *gin.Context) {
	order := s.runs.Order()

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"total": len(order),
	})
}
