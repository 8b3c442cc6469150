package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is one entry of the closed detection event vocabulary.
type EventType string

// Event vocabulary reported by the upstream detectors.
const (
	EventFocusLost        EventType = "focus_lost"
	EventFocusRegained    EventType = "focus_regained"
	EventNoFace           EventType = "no_face_detected"
	EventMultipleFaces    EventType = "multiple_faces_detected"
	EventPhoneDetected    EventType = "phone_detected"
	EventBookDetected     EventType = "book_detected"
	EventDeviceDetected   EventType = "device_detected"
	EventEyeClosure       EventType = "eye_closure_detected"
	EventAudioNoise       EventType = "audio_noise_detected"
	EventInterviewStarted EventType = "interview_started"
	EventInterviewEnded   EventType = "interview_ended"
)

// Severity levels for events.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

var eventTypes = map[EventType]bool{
	EventFocusLost:        true,
	EventFocusRegained:    true,
	EventNoFace:           true,
	EventMultipleFaces:    true,
	EventPhoneDetected:    true,
	EventBookDetected:     true,
	EventDeviceDetected:   true,
	EventEyeClosure:       true,
	EventAudioNoise:       true,
	EventInterviewStarted: true,
	EventInterviewEnded:   true,
}

// suspiciousEventTypes is the single source of truth for the suspicious set,
// shared by the scorer update path and the report aggregator.
var suspiciousEventTypes = map[EventType]bool{
	EventPhoneDetected:  true,
	EventBookDetected:   true,
	EventDeviceDetected: true,
	EventMultipleFaces:  true,
	EventEyeClosure:     true,
	EventAudioNoise:     true,
}

var severities = map[string]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

// Valid reports whether t is part of the event vocabulary.
func (t EventType) Valid() bool { return eventTypes[t] }

// Suspicious reports whether t is one of the six detection kinds that
// count against the integrity score.
func (t EventType) Suspicious() bool { return suspiciousEventTypes[t] }

// ValidSeverity reports whether s is a known severity level.
func ValidSeverity(s string) bool { return severities[s] }

// BoundingBox locates a vision detection within the video frame.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EventLog is one classified occurrence reported during a session.
// Rows are append-only; aggregation orders by Timestamp ascending.
type EventLog struct {
	ID          uuid.UUID       `json:"id"`
	CandidateID string          `json:"candidate_id"`
	EventType   EventType       `json:"event_type"`
	Timestamp   time.Time       `json:"timestamp"`
	Confidence  *float64        `json:"confidence,omitempty"`
	BoundingBox *BoundingBox    `json:"bounding_box,omitempty"`
	Severity    string          `json:"severity"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
