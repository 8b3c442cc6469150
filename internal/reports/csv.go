package reports

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/proctorly/backend/internal/models"
)

// WriteCSV renders the report as CSV: a summary section, the per-type
// breakdown, the hourly buckets and the raw event rows. The statistics
// carry the same data as the JSON report; only the layout differs.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)

	summary := [][]string{
		{"candidate_id", r.Candidate.CandidateID},
		{"name", r.Candidate.Name},
		{"email", r.Candidate.Email},
		{"status", r.Candidate.Status},
		{"interview_start_time", r.Candidate.InterviewStartTime.Format(time.RFC3339)},
		{"total_duration_seconds", strconv.FormatInt(r.Candidate.TotalDuration, 10)},
		{"total_events", strconv.Itoa(r.Statistics.TotalEvents)},
		{"focus_lost_count", strconv.Itoa(r.Statistics.FocusLostCount)},
		{"suspicious_events_count", strconv.Itoa(r.Statistics.SuspiciousCount)},
		{"integrity_score", strconv.Itoa(r.Statistics.IntegrityScore)},
		{"risk_level", r.Statistics.RiskLevel},
		{"generated_at", r.GeneratedAt.Format(time.RFC3339)},
	}
	if r.Candidate.InterviewEndTime != nil {
		summary = append(summary, []string{"interview_end_time", r.Candidate.InterviewEndTime.Format(time.RFC3339)})
	}
	for _, row := range summary {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"event_type", "count"}); err != nil {
		return err
	}
	for _, t := range eventTypeOrder(r.Statistics) {
		if err := cw.Write([]string{string(t), strconv.Itoa(r.Statistics.EventTypeBreakdown[t])}); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"period", "events", "focus_lost", "suspicious"}); err != nil {
		return err
	}
	buckets := []struct {
		name string
		b    TimeBucket
	}{
		{"first_hour", r.Statistics.TimeBasedAnalysis.FirstHour},
		{"second_hour", r.Statistics.TimeBasedAnalysis.SecondHour},
		{"third_hour", r.Statistics.TimeBasedAnalysis.ThirdHour},
		{"beyond", r.Statistics.TimeBasedAnalysis.Beyond},
	}
	for _, row := range buckets {
		if err := cw.Write([]string{row.name, strconv.Itoa(row.b.Events), strconv.Itoa(row.b.FocusLost), strconv.Itoa(row.b.Suspicious)}); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"timestamp", "event_type", "severity", "confidence"}); err != nil {
		return err
	}
	for _, e := range r.Events {
		confidence := ""
		if e.Confidence != nil {
			confidence = strconv.FormatFloat(*e.Confidence, 'f', -1, 64)
		}
		if err := cw.Write([]string{e.Timestamp.Format(time.RFC3339), string(e.EventType), e.Severity, confidence}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// eventTypeOrder returns breakdown keys sorted by count descending, then
// name, so the CSV is stable across runs.
func eventTypeOrder(s Statistics) []models.EventType {
	keys := make([]models.EventType, 0, len(s.EventTypeBreakdown))
	for t := range s.EventTypeBreakdown {
		keys = append(keys, t)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := s.EventTypeBreakdown[keys[i]], s.EventTypeBreakdown[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	return keys
}
