package events

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/proctorly/backend/internal/candidates"
	"github.com/proctorly/backend/internal/models"
	"github.com/proctorly/backend/pkg/response"
)

// Broadcaster pushes ingested events to live proctor dashboards.
// Optional; nil disables the live feed.
type Broadcaster interface {
	BroadcastToCandidate(candidateID string, event string, payload interface{})
}

// Handler handles event log HTTP endpoints.
type Handler struct {
	repo   *Repository
	feed   Broadcaster
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, feed Broadcaster, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, feed: feed, logger: logger}
}

// CreateRequest is the body for POST /api/logs.
type CreateRequest struct {
	CandidateID string              `json:"candidateId" binding:"required"`
	EventType   models.EventType    `json:"eventType" binding:"required"`
	Timestamp   *time.Time          `json:"timestamp"`
	Confidence  *float64            `json:"confidence"`
	BoundingBox *models.BoundingBox `json:"boundingBox"`
	Severity    string              `json:"severity"`
	Metadata    json.RawMessage     `json:"metadata"`
}

// Create handles POST /api/logs: validates the event, appends it and updates
// the candidate's counters and integrity score atomically.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "candidateId and eventType are required")
		return
	}
	if !req.EventType.Valid() {
		response.BadRequest(c, "unknown event type: "+string(req.EventType))
		return
	}
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 1) {
		response.BadRequest(c, "confidence must be between 0 and 1")
		return
	}
	severity := req.Severity
	if severity == "" {
		severity = models.SeverityMedium
	} else if !models.ValidSeverity(severity) {
		response.BadRequest(c, "invalid severity: "+severity)
		return
	}
	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	event := &models.EventLog{
		CandidateID: req.CandidateID,
		EventType:   req.EventType,
		Timestamp:   ts,
		Confidence:  req.Confidence,
		BoundingBox: req.BoundingBox,
		Severity:    severity,
		Metadata:    req.Metadata,
	}
	if err := h.repo.Record(c.Request.Context(), event); err != nil {
		if errors.Is(err, candidates.ErrNotFound) {
			response.NotFound(c, "candidate not found")
			return
		}
		h.logger.Error("record event failed", zap.Error(err),
			zap.String("candidate_id", req.CandidateID), zap.String("event_type", string(req.EventType)))
		response.Internal(c, "failed to create log entry")
		return
	}

	if h.feed != nil {
		h.feed.BroadcastToCandidate(event.CandidateID, "event", event)
	}
	response.Created(c, event)
}

// ListByCandidate handles GET /api/logs/:candidateId with optional
// eventType, startTime, endTime and limit query filters.
func (h *Handler) ListByCandidate(c *gin.Context) {
	candidateID := c.Param("candidateId")

	var f Filter
	if t := c.Query("eventType"); t != "" {
		f.EventType = models.EventType(t)
	}
	var ok bool
	if f.StartTime, ok = parseTimeQuery(c, "startTime"); !ok {
		return
	}
	if f.EndTime, ok = parseTimeQuery(c, "endTime"); !ok {
		return
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		f.Limit = n
	}

	list, err := h.repo.ListByCandidate(c.Request.Context(), candidateID, f)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to fetch logs")
		return
	}
	response.OK(c, list)
}

// Stats handles GET /api/logs/stats/:candidateId: per-type counts, average
// confidence and last occurrence within an optional time window.
func (h *Handler) Stats(c *gin.Context) {
	candidateID := c.Param("candidateId")

	startTime, ok := parseTimeQuery(c, "startTime")
	if !ok {
		return
	}
	endTime, ok := parseTimeQuery(c, "endTime")
	if !ok {
		return
	}

	stats, err := h.repo.StatsByType(c.Request.Context(), candidateID, startTime, endTime)
	if err != nil {
		h.logger.Error("event stats failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to fetch statistics")
		return
	}
	response.OK(c, stats)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		response.BadRequest(c, "invalid "+key+": must be RFC3339")
		return nil, false
	}
	return &t, true
}
