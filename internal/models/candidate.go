package models

import (
	"time"

	"github.com/google/uuid"
)

// CandidateStatus represents the interview session lifecycle.
const (
	CandidateStatusActive     = "active"
	CandidateStatusCompleted  = "completed"
	CandidateStatusTerminated = "terminated"
)

// DetectionSettings are per-candidate toggles for the upstream detectors.
type DetectionSettings struct {
	FocusDetectionEnabled      bool `json:"focus_detection_enabled"`
	ObjectDetectionEnabled     bool `json:"object_detection_enabled"`
	AudioDetectionEnabled      bool `json:"audio_detection_enabled"`
	EyeClosureDetectionEnabled bool `json:"eye_closure_detection_enabled"`
}

// DefaultDetectionSettings enables all detectors.
func DefaultDetectionSettings() DetectionSettings {
	return DetectionSettings{
		FocusDetectionEnabled:      true,
		ObjectDetectionEnabled:     true,
		AudioDetectionEnabled:      true,
		EyeClosureDetectionEnabled: true,
	}
}

// Candidate is one monitored interview session. CandidateID is the opaque
// identifier supplied by the exam frontend; ID is the internal row key.
// IntegrityScore and the two counters are derived state: they are only
// mutated through the event ingestion path and EndInterview.
type Candidate struct {
	ID                 uuid.UUID         `json:"id"`
	CandidateID        string            `json:"candidate_id"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	InterviewStartTime time.Time         `json:"interview_start_time"`
	InterviewEndTime   *time.Time        `json:"interview_end_time,omitempty"`
	Status             string            `json:"status"`
	TotalDuration      int64             `json:"total_duration"` // seconds, set at interview end
	FocusLostCount     int               `json:"focus_lost_count"`
	SuspiciousCount    int               `json:"suspicious_events_count"`
	IntegrityScore     int               `json:"integrity_score"`
	VideoPath          string            `json:"video_recording_path,omitempty"`
	VideoS3Key         string            `json:"video_s3_key,omitempty"`
	Settings           DetectionSettings `json:"settings"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}
