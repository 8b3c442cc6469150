package reports

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proctorly/backend/internal/models"
)

func TestWriteCSV(t *testing.T) {
	c := testCandidate(84)
	start := c.InterviewStartTime
	conf := 0.91
	events := []models.EventLog{
		eventAt(models.EventFocusLost, start, time.Minute),
		eventAt(models.EventFocusLost, start, 2*time.Minute),
		eventAt(models.EventPhoneDetected, start, 3*time.Minute),
	}
	events[2].Confidence = &conf
	r := Build(c, events, start.Add(10*time.Minute))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "candidate_id,cand-001")
	assert.Contains(t, out, "integrity_score,84")
	assert.Contains(t, out, "risk_level,medium")
	assert.Contains(t, out, "event_type,count")
	assert.Contains(t, out, "phone_detected,1")
	assert.Contains(t, out, "first_hour,3,2,1")
	assert.Contains(t, out, "phone_detected,medium,0.91")

	// Breakdown is ordered by count descending.
	focusIdx := strings.Index(out, "focus_lost,2")
	phoneIdx := strings.Index(out, "phone_detected,1")
	require.Greater(t, focusIdx, 0)
	require.Greater(t, phoneIdx, 0)
	assert.Less(t, focusIdx, phoneIdx)
}

func TestWriteCSVIncludesEndTime(t *testing.T) {
	c := testCandidate(100)
	end := c.InterviewStartTime.Add(time.Hour)
	c.InterviewEndTime = &end
	c.TotalDuration = 3600
	c.Status = models.CandidateStatusCompleted
	r := Build(c, nil, end)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	assert.Contains(t, buf.String(), "interview_end_time,"+end.Format(time.RFC3339))
	assert.Contains(t, buf.String(), "total_duration_seconds,3600")
}
