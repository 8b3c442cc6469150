// Package reports turns a candidate's event history into the statistics
// report served by the reporting endpoints: per-type breakdown, hourly
// bucketing relative to the interview start, and the risk classification.
package reports

import (
	"time"

	"github.com/proctorly/backend/internal/models"
	"github.com/proctorly/backend/internal/scoring"
)

// TimeBucket holds counts for one hour of the interview.
type TimeBucket struct {
	Events     int `json:"events"`
	FocusLost  int `json:"focusLost"`
	Suspicious int `json:"suspicious"`
}

// TimeBasedAnalysis partitions events into hour-of-interview buckets.
// Each event lands in exactly one bucket.
type TimeBasedAnalysis struct {
	FirstHour  TimeBucket `json:"firstHour"`
	SecondHour TimeBucket `json:"secondHour"`
	ThirdHour  TimeBucket `json:"thirdHour"`
	Beyond     TimeBucket `json:"beyond"`
}

// Statistics is the aggregated view of a candidate's event history.
// It is recomputed per request and never persisted.
type Statistics struct {
	TotalEvents        int                      `json:"totalEvents"`
	FocusLostCount     int                      `json:"focusLostCount"`
	SuspiciousCount    int                      `json:"suspiciousEventsCount"`
	EventTypeBreakdown map[models.EventType]int `json:"eventTypeBreakdown"`
	TimeBasedAnalysis  TimeBasedAnalysis        `json:"timeBasedAnalysis"`
	IntegrityScore     int                      `json:"integrityScore"`
	RiskLevel          string                   `json:"riskLevel"`
}

// Aggregate folds the candidate's events (ascending by timestamp) into a
// Statistics value. It is a pure read-only pass: running it twice over the
// same inputs yields identical output, and neither the candidate nor the
// events are mutated. An empty event set produces zero counters with the
// risk level derived from the stored score.
func Aggregate(candidate *models.Candidate, events []models.EventLog) Statistics {
	stats := Statistics{
		EventTypeBreakdown: make(map[models.EventType]int),
		IntegrityScore:     candidate.IntegrityScore,
		RiskLevel:          scoring.RiskLevel(candidate.IntegrityScore),
	}

	for _, e := range events {
		stats.TotalEvents++
		stats.EventTypeBreakdown[e.EventType]++

		focusLost := e.EventType == models.EventFocusLost
		suspicious := e.EventType.Suspicious()
		if focusLost {
			stats.FocusLostCount++
		}
		if suspicious {
			stats.SuspiciousCount++
		}

		bucket := stats.TimeBasedAnalysis.bucketFor(e.Timestamp.Sub(candidate.InterviewStartTime))
		bucket.Events++
		if focusLost {
			bucket.FocusLost++
		}
		if suspicious {
			bucket.Suspicious++
		}
	}

	return stats
}

// bucketFor routes an elapsed-since-start duration to its hour bucket.
// Bucket upper edges are inclusive: exactly 3600s still counts as hour one.
func (a *TimeBasedAnalysis) bucketFor(elapsed time.Duration) *TimeBucket {
	switch {
	case elapsed <= time.Hour:
		return &a.FirstHour
	case elapsed <= 2*time.Hour:
		return &a.SecondHour
	case elapsed <= 3*time.Hour:
		return &a.ThirdHour
	default:
		return &a.Beyond
	}
}

// Duration returns the interview duration in seconds: the stored total for
// completed sessions, wall clock since start for active ones.
func Duration(candidate *models.Candidate, now time.Time) int64 {
	if candidate.TotalDuration > 0 {
		return candidate.TotalDuration
	}
	end := now
	if candidate.InterviewEndTime != nil {
		end = *candidate.InterviewEndTime
	}
	d := int64(end.Sub(candidate.InterviewStartTime).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

// CandidateSummary is the candidate block of the full report.
type CandidateSummary struct {
	CandidateID        string     `json:"candidateId"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	InterviewStartTime time.Time  `json:"interviewStartTime"`
	InterviewEndTime   *time.Time `json:"interviewEndTime,omitempty"`
	TotalDuration      int64      `json:"totalDuration"`
	Status             string     `json:"status"`
}

// Report is the full report payload: candidate identity, aggregated
// statistics and the raw event list.
type Report struct {
	Candidate   CandidateSummary  `json:"candidate"`
	Statistics  Statistics        `json:"statistics"`
	Events      []models.EventLog `json:"events"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// Build assembles the full report for a candidate from its ascending
// event history.
func Build(candidate *models.Candidate, events []models.EventLog, now time.Time) Report {
	return Report{
		Candidate: CandidateSummary{
			CandidateID:        candidate.CandidateID,
			Name:               candidate.Name,
			Email:              candidate.Email,
			InterviewStartTime: candidate.InterviewStartTime,
			InterviewEndTime:   candidate.InterviewEndTime,
			TotalDuration:      Duration(candidate, now),
			Status:             candidate.Status,
		},
		Statistics:  Aggregate(candidate, events),
		Events:      events,
		GeneratedAt: now,
	}
}
