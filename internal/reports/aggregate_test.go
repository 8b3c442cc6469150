package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proctorly/backend/internal/models"
)

func testCandidate(score int) *models.Candidate {
	return &models.Candidate{
		CandidateID:        "cand-001",
		Name:               "Asha Verma",
		Email:              "asha@example.com",
		InterviewStartTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Status:             models.CandidateStatusActive,
		IntegrityScore:     score,
	}
}

func eventAt(t models.EventType, start time.Time, offset time.Duration) models.EventLog {
	return models.EventLog{
		CandidateID: "cand-001",
		EventType:   t,
		Timestamp:   start.Add(offset),
		Severity:    models.SeverityMedium,
	}
}

func TestAggregateEmpty(t *testing.T) {
	c := testCandidate(100)
	stats := Aggregate(c, nil)

	assert.Equal(t, 0, stats.TotalEvents)
	assert.Equal(t, 0, stats.FocusLostCount)
	assert.Equal(t, 0, stats.SuspiciousCount)
	assert.Empty(t, stats.EventTypeBreakdown)
	assert.Equal(t, 100, stats.IntegrityScore)
	assert.Equal(t, "low", stats.RiskLevel)
}

func TestAggregateCounts(t *testing.T) {
	c := testCandidate(84)
	start := c.InterviewStartTime
	events := []models.EventLog{
		eventAt(models.EventInterviewStarted, start, 0),
		eventAt(models.EventFocusLost, start, 5*time.Minute),
		eventAt(models.EventFocusRegained, start, 6*time.Minute),
		eventAt(models.EventFocusLost, start, 20*time.Minute),
		eventAt(models.EventFocusLost, start, 40*time.Minute),
		eventAt(models.EventPhoneDetected, start, 70*time.Minute),
		eventAt(models.EventPhoneDetected, start, 130*time.Minute),
	}

	stats := Aggregate(c, events)

	assert.Equal(t, 7, stats.TotalEvents)
	assert.Equal(t, 3, stats.FocusLostCount)
	assert.Equal(t, 2, stats.SuspiciousCount)
	assert.Equal(t, 3, stats.EventTypeBreakdown[models.EventFocusLost])
	assert.Equal(t, 2, stats.EventTypeBreakdown[models.EventPhoneDetected])
	assert.Equal(t, 84, stats.IntegrityScore)
	assert.Equal(t, "medium", stats.RiskLevel)
}

func TestAggregateBucketPartition(t *testing.T) {
	c := testCandidate(100)
	start := c.InterviewStartTime
	offsets := []time.Duration{
		0,
		30 * time.Minute,
		time.Hour, // inclusive upper edge: still hour one
		time.Hour + time.Second,
		90 * time.Minute,
		2 * time.Hour,
		2*time.Hour + time.Minute,
		3 * time.Hour,
		3*time.Hour + time.Nanosecond,
		5 * time.Hour,
	}
	events := make([]models.EventLog, 0, len(offsets))
	for _, off := range offsets {
		events = append(events, eventAt(models.EventNoFace, start, off))
	}

	stats := Aggregate(c, events)
	a := stats.TimeBasedAnalysis

	assert.Equal(t, 3, a.FirstHour.Events)
	assert.Equal(t, 3, a.SecondHour.Events)
	assert.Equal(t, 2, a.ThirdHour.Events)
	assert.Equal(t, 2, a.Beyond.Events)

	sum := a.FirstHour.Events + a.SecondHour.Events + a.ThirdHour.Events + a.Beyond.Events
	assert.Equal(t, stats.TotalEvents, sum, "every event lands in exactly one bucket")
}

func TestAggregateIdempotent(t *testing.T) {
	c := testCandidate(72)
	start := c.InterviewStartTime
	events := []models.EventLog{
		eventAt(models.EventFocusLost, start, time.Minute),
		eventAt(models.EventBookDetected, start, 2*time.Minute),
		eventAt(models.EventMultipleFaces, start, 3*time.Minute),
	}

	first := Aggregate(c, events)
	second := Aggregate(c, events)
	assert.Equal(t, first, second)
}

func TestDuration(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)

	active := testCandidate(100)
	assert.Equal(t, int64(5400), Duration(active, now))

	ended := testCandidate(100)
	end := ended.InterviewStartTime.Add(45 * time.Minute)
	ended.InterviewEndTime = &end
	ended.TotalDuration = 2700
	ended.Status = models.CandidateStatusCompleted
	assert.Equal(t, int64(2700), Duration(ended, now))

	skewed := testCandidate(100)
	skewed.InterviewStartTime = now.Add(time.Hour)
	assert.Equal(t, int64(0), Duration(skewed, now))
}

func TestBuildReport(t *testing.T) {
	c := testCandidate(90)
	start := c.InterviewStartTime
	events := []models.EventLog{
		eventAt(models.EventInterviewStarted, start, 0),
		eventAt(models.EventFocusLost, start, 10*time.Minute),
	}
	now := start.Add(time.Hour)

	r := Build(c, events, now)

	require.Equal(t, "cand-001", r.Candidate.CandidateID)
	assert.Equal(t, int64(3600), r.Candidate.TotalDuration)
	assert.Equal(t, now, r.GeneratedAt)
	assert.Equal(t, 2, r.Statistics.TotalEvents)
	assert.Equal(t, "low", r.Statistics.RiskLevel)
	assert.Len(t, r.Events, 2)
}
