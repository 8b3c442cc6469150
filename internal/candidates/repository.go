package candidates

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proctorly/backend/internal/models"
	"github.com/proctorly/backend/internal/scoring"
)

// ErrNotFound is returned when a candidate does not exist.
var ErrNotFound = errors.New("candidate not found")

// ErrDuplicate is returned when a candidate ID already exists.
var ErrDuplicate = errors.New("candidate id already exists")

const candidateColumns = `id, candidate_id, name, email, interview_start_time, interview_end_time,
	status, total_duration, focus_lost_count, suspicious_events_count, integrity_score,
	video_recording_path, video_s3_key,
	focus_detection_enabled, object_detection_enabled, audio_detection_enabled, eye_closure_detection_enabled,
	created_at, updated_at`

// Repository handles candidate persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a candidate repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanCandidate(row pgx.Row) (*models.Candidate, error) {
	var c models.Candidate
	err := row.Scan(&c.ID, &c.CandidateID, &c.Name, &c.Email, &c.InterviewStartTime, &c.InterviewEndTime,
		&c.Status, &c.TotalDuration, &c.FocusLostCount, &c.SuspiciousCount, &c.IntegrityScore,
		&c.VideoPath, &c.VideoS3Key,
		&c.Settings.FocusDetectionEnabled, &c.Settings.ObjectDetectionEnabled,
		&c.Settings.AudioDetectionEnabled, &c.Settings.EyeClosureDetectionEnabled,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a new candidate with an initial score of 100 and zero counters.
// Returns ErrDuplicate if the candidate ID is already taken.
func (r *Repository) Create(ctx context.Context, c *models.Candidate) error {
	const q = `INSERT INTO candidates (candidate_id, name, email,
		focus_detection_enabled, object_detection_enabled, audio_detection_enabled, eye_closure_detection_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, interview_start_time, status, total_duration, focus_lost_count,
			suspicious_events_count, integrity_score, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, c.CandidateID, c.Name, c.Email,
		c.Settings.FocusDetectionEnabled, c.Settings.ObjectDetectionEnabled,
		c.Settings.AudioDetectionEnabled, c.Settings.EyeClosureDetectionEnabled).
		Scan(&c.ID, &c.InterviewStartTime, &c.Status, &c.TotalDuration, &c.FocusLostCount,
			&c.SuspiciousCount, &c.IntegrityScore, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByCandidateID returns a candidate by its external identifier.
func (r *Repository) GetByCandidateID(ctx context.Context, candidateID string) (*models.Candidate, error) {
	return scanCandidate(r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE candidate_id = $1`, candidateID))
}

// List returns candidates, newest first, with optional status filter and paging.
func (r *Repository) List(ctx context.Context, status string, limit, skip int) ([]models.Candidate, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + candidateColumns + ` FROM candidates`
	args := []interface{}{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	if status != "" {
		q += ` LIMIT $2 OFFSET $3`
	} else {
		q += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, skip)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Update modifies mutable candidate fields. Counters and the integrity score
// are never set through this path.
func (r *Repository) Update(ctx context.Context, candidateID string, name, email, status *string, settings *models.DetectionSettings) (*models.Candidate, error) {
	const q = `UPDATE candidates SET
		name = COALESCE($2, name),
		email = COALESCE($3, email),
		status = COALESCE($4, status),
		focus_detection_enabled = COALESCE($5, focus_detection_enabled),
		object_detection_enabled = COALESCE($6, object_detection_enabled),
		audio_detection_enabled = COALESCE($7, audio_detection_enabled),
		eye_closure_detection_enabled = COALESCE($8, eye_closure_detection_enabled),
		updated_at = NOW()
		WHERE candidate_id = $1
		RETURNING ` + candidateColumns
	var fde, ode, ade, ecde *bool
	if settings != nil {
		fde = &settings.FocusDetectionEnabled
		ode = &settings.ObjectDetectionEnabled
		ade = &settings.AudioDetectionEnabled
		ecde = &settings.EyeClosureDetectionEnabled
	}
	return scanCandidate(r.pool.QueryRow(ctx, q, candidateID, name, email, status, fde, ode, ade, ecde))
}

// SetVideoPath records the local path of the uploaded recording.
func (r *Repository) SetVideoPath(ctx context.Context, candidateID, path string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE candidates SET video_recording_path = $2, updated_at = NOW() WHERE candidate_id = $1`,
		candidateID, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVideoS3Key records the archived S3 key for the candidate's recording.
func (r *Repository) SetVideoS3Key(ctx context.Context, candidateID, key string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE candidates SET video_s3_key = $2, updated_at = NOW() WHERE candidate_id = $1`,
		candidateID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EndInterview closes the session: sets the end time, marks the candidate
// completed, stores the total duration and recomputes the integrity score
// from the final counters. The row lock serializes against concurrent
// counter updates from event ingestion.
func (r *Repository) EndInterview(ctx context.Context, candidateID string) (*models.Candidate, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var focusLost, suspicious int
	var start time.Time
	err = tx.QueryRow(ctx,
		`SELECT interview_start_time, focus_lost_count, suspicious_events_count
		 FROM candidates WHERE candidate_id = $1 FOR UPDATE`, candidateID).
		Scan(&start, &focusLost, &suspicious)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	end := time.Now()
	duration := int64(end.Sub(start).Seconds())
	if duration < 0 {
		duration = 0
	}
	score := scoring.Score(focusLost, suspicious)

	c, err := scanCandidate(tx.QueryRow(ctx,
		`UPDATE candidates SET interview_end_time = $2, status = $3, total_duration = $4,
			integrity_score = $5, updated_at = NOW()
		 WHERE candidate_id = $1
		 RETURNING `+candidateColumns,
		candidateID, end, models.CandidateStatusCompleted, duration, score))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
