package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordingStatus represents recording archival lifecycle.
const (
	RecordingStatusUploaded  = "uploaded"  // received from the client, on local disk
	RecordingStatusArchiving = "archiving" // archive job in flight
	RecordingStatusArchived  = "archived"  // durable in S3
	RecordingStatusFailed    = "failed"
)

// Recording is a candidate's archived session video (local upload → S3).
type Recording struct {
	ID          uuid.UUID `json:"id"`
	CandidateID string    `json:"candidate_id"`
	LocalPath   string    `json:"local_path,omitempty"`
	S3Key       string    `json:"s3_key,omitempty"`
	S3URL       string    `json:"s3_url,omitempty"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
