package media

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proctorly/backend/internal/models"
)

// ErrNoRecording is returned when a candidate has no recording row.
var ErrNoRecording = errors.New("recording not found")

const recordingColumns = `id, candidate_id, local_path, s3_key, s3_url, file_size, content_type, status, created_at, updated_at`

// Repository handles recording persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var r models.Recording
	err := row.Scan(&r.ID, &r.CandidateID, &r.LocalPath, &r.S3Key, &r.S3URL,
		&r.FileSize, &r.ContentType, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRecording
		}
		return nil, err
	}
	return &r, nil
}

// Create inserts a recording row for a fresh upload.
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (candidate_id, local_path, file_size, content_type, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, s3_key, s3_url, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, rec.CandidateID, rec.LocalPath, rec.FileSize, rec.ContentType, rec.Status).
		Scan(&rec.ID, &rec.S3Key, &rec.S3URL, &rec.CreatedAt, &rec.UpdatedAt)
}

// GetByID returns a recording by row id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	return scanRecording(r.pool.QueryRow(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id))
}

// GetLatestByCandidate returns the candidate's most recent recording.
func (r *Repository) GetLatestByCandidate(ctx context.Context, candidateID string) (*models.Recording, error) {
	return scanRecording(r.pool.QueryRow(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE candidate_id = $1 ORDER BY created_at DESC LIMIT 1`,
		candidateID))
}

// UpdateStatus sets the archival status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE recordings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

// UpdateArchiveResult records a successful S3 archive: key, URL, final size,
// clears the local path and marks the row archived.
func (r *Repository) UpdateArchiveResult(ctx context.Context, id uuid.UUID, s3Key, s3URL string, fileSize int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE recordings SET s3_key = $2, s3_url = $3, file_size = $4, local_path = '',
			status = $5, updated_at = NOW() WHERE id = $1`,
		id, s3Key, s3URL, fileSize, models.RecordingStatusArchived)
	return err
}
