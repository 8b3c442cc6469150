package candidates

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/proctorly/backend/internal/models"
	"github.com/proctorly/backend/pkg/response"
)

// LifecycleLogger appends interview lifecycle marker events
// (interview_started / interview_ended) to the event log.
type LifecycleLogger interface {
	Append(ctx context.Context, e *models.EventLog) error
}

// Handler handles candidate HTTP endpoints.
type Handler struct {
	repo   *Repository
	events LifecycleLogger
	logger *zap.Logger
}

// NewHandler creates a candidates handler.
func NewHandler(repo *Repository, events LifecycleLogger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, events: events, logger: logger}
}

// CreateRequest is the body for POST /api/candidates.
type CreateRequest struct {
	CandidateID string                    `json:"candidateId" binding:"required"`
	Name        string                    `json:"name" binding:"required"`
	Email       string                    `json:"email" binding:"required,email"`
	Settings    *models.DetectionSettings `json:"settings"`
}

// UpdateRequest is the body for PUT /api/candidates/:candidateId.
type UpdateRequest struct {
	Name     *string                   `json:"name"`
	Email    *string                   `json:"email"`
	Status   *string                   `json:"status"`
	Settings *models.DetectionSettings `json:"settings"`
}

// Create handles POST /api/candidates: creates the candidate with a fresh
// score of 100 and appends the interview_started marker.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "candidateId, name, and email are required")
		return
	}

	settings := models.DefaultDetectionSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	candidate := &models.Candidate{
		CandidateID: req.CandidateID,
		Name:        req.Name,
		Email:       req.Email,
		Settings:    settings,
	}
	if err := h.repo.Create(c.Request.Context(), candidate); err != nil {
		if errors.Is(err, ErrDuplicate) {
			response.Conflict(c, "candidate id already exists")
			return
		}
		h.logger.Error("create candidate failed", zap.Error(err), zap.String("candidate_id", req.CandidateID))
		response.Internal(c, "failed to create candidate")
		return
	}

	start := &models.EventLog{
		CandidateID: candidate.CandidateID,
		EventType:   models.EventInterviewStarted,
		Timestamp:   candidate.InterviewStartTime,
		Severity:    models.SeverityLow,
	}
	if err := h.events.Append(c.Request.Context(), start); err != nil {
		h.logger.Warn("append interview_started failed", zap.Error(err), zap.String("candidate_id", candidate.CandidateID))
	}

	response.Created(c, candidate)
}

// GetByID handles GET /api/candidates/:candidateId.
func (h *Handler) GetByID(c *gin.Context) {
	candidate, err := h.repo.GetByCandidateID(c.Request.Context(), c.Param("candidateId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "candidate not found")
			return
		}
		h.logger.Error("get candidate failed", zap.Error(err))
		response.Internal(c, "failed to fetch candidate")
		return
	}
	response.OK(c, candidate)
}

// List handles GET /api/candidates with optional status filter and
// limit/skip paging.
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	limit := intQuery(c, "limit", 50)
	skip := intQuery(c, "skip", 0)

	list, err := h.repo.List(c.Request.Context(), status, limit, skip)
	if err != nil {
		h.logger.Error("list candidates failed", zap.Error(err))
		response.Internal(c, "failed to fetch candidates")
		return
	}
	response.OK(c, list)
}

// Update handles PUT /api/candidates/:candidateId. Counters and the
// integrity score cannot be set through this endpoint.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Status != nil {
		switch *req.Status {
		case models.CandidateStatusActive, models.CandidateStatusCompleted, models.CandidateStatusTerminated:
		default:
			response.BadRequest(c, "invalid status")
			return
		}
	}

	candidate, err := h.repo.Update(c.Request.Context(), c.Param("candidateId"), req.Name, req.Email, req.Status, req.Settings)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "candidate not found")
			return
		}
		h.logger.Error("update candidate failed", zap.Error(err))
		response.Internal(c, "failed to update candidate")
		return
	}
	response.OK(c, candidate)
}

// End handles POST /api/candidates/:candidateId/end: closes the interview,
// stores the duration, recomputes the score and appends interview_ended.
func (h *Handler) End(c *gin.Context) {
	candidateID := c.Param("candidateId")
	candidate, err := h.repo.EndInterview(c.Request.Context(), candidateID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "candidate not found")
			return
		}
		h.logger.Error("end interview failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to end interview")
		return
	}

	end := &models.EventLog{
		CandidateID: candidateID,
		EventType:   models.EventInterviewEnded,
		Timestamp:   *candidate.InterviewEndTime,
		Severity:    models.SeverityLow,
	}
	if err := h.events.Append(c.Request.Context(), end); err != nil {
		h.logger.Warn("append interview_ended failed", zap.Error(err), zap.String("candidate_id", candidateID))
	}

	response.OK(c, candidate)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
