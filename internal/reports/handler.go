package reports

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/proctorly/backend/internal/candidates"
	"github.com/proctorly/backend/internal/events"
	"github.com/proctorly/backend/pkg/response"
)

// Handler handles GET /api/reports/:candidateId.
type Handler struct {
	candidateRepo *candidates.Repository
	eventRepo     *events.Repository
	logger        *zap.Logger
}

// NewHandler creates a reports handler.
func NewHandler(candidateRepo *candidates.Repository, eventRepo *events.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{candidateRepo: candidateRepo, eventRepo: eventRepo, logger: logger}
}

// Get handles GET /api/reports/:candidateId?format=json|csv with an optional
// startTime/endTime window over the aggregated event set. The aggregation
// reads a committed snapshot; it does not block concurrent ingestion.
func (h *Handler) Get(c *gin.Context) {
	candidateID := c.Param("candidateId")
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		response.BadRequest(c, "format must be json or csv")
		return
	}

	startTime, ok := parseTimeQuery(c, "startTime")
	if !ok {
		return
	}
	endTime, ok := parseTimeQuery(c, "endTime")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	candidate, err := h.candidateRepo.GetByCandidateID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, candidates.ErrNotFound) {
			response.NotFound(c, "candidate not found")
			return
		}
		h.logger.Error("load candidate for report failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to generate report")
		return
	}

	eventList, err := h.eventRepo.ListAscending(ctx, candidateID, startTime, endTime)
	if err != nil {
		h.logger.Error("load events for report failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to generate report")
		return
	}

	report := Build(candidate, eventList, time.Now())

	if format == "csv" {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, report); err != nil {
			h.logger.Error("render csv report failed", zap.Error(err), zap.String("candidate_id", candidateID))
			response.Internal(c, "failed to generate report")
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "proctoring-report-"+candidateID+".csv"))
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
		return
	}

	response.OK(c, report)
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
