package events

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proctorly/backend/internal/candidates"
	"github.com/proctorly/backend/internal/models"
	"github.com/proctorly/backend/internal/scoring"
)

// Repository handles the append-only event log and the per-candidate
// counter/score updates that go with it.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func insertEvent(ctx context.Context, tx pgx.Tx, e *models.EventLog) error {
	const q = `INSERT INTO event_logs (candidate_id, event_type, timestamp, confidence,
		bbox_x, bbox_y, bbox_width, bbox_height, severity, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, '{}'::jsonb))
		RETURNING id, created_at`
	var bx, by, bw, bh *float64
	if e.BoundingBox != nil {
		bx, by, bw, bh = &e.BoundingBox.X, &e.BoundingBox.Y, &e.BoundingBox.Width, &e.BoundingBox.Height
	}
	err := tx.QueryRow(ctx, q, e.CandidateID, e.EventType, e.Timestamp, e.Confidence,
		bx, by, bw, bh, e.Severity, e.Metadata).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return candidates.ErrNotFound
		}
		return err
	}
	return nil
}

// Record appends an event and, for counter-affecting types, bumps the
// candidate's counters and recomputes the integrity score in the same
// transaction. The SELECT ... FOR UPDATE serializes concurrent events for
// one candidate so no increment is lost; events for different candidates
// do not contend. Either the event and the score update both commit or
// neither does.
func (r *Repository) Record(ctx context.Context, e *models.EventLog) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertEvent(ctx, tx, e); err != nil {
		return err
	}

	focusDelta := 0
	suspiciousDelta := 0
	if e.EventType == models.EventFocusLost {
		focusDelta = 1
	}
	if e.EventType.Suspicious() {
		suspiciousDelta = 1
	}
	if focusDelta != 0 || suspiciousDelta != 0 {
		var focusLost, suspicious int
		err = tx.QueryRow(ctx,
			`SELECT focus_lost_count, suspicious_events_count FROM candidates
			 WHERE candidate_id = $1 FOR UPDATE`, e.CandidateID).
			Scan(&focusLost, &suspicious)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return candidates.ErrNotFound
			}
			return err
		}
		focusLost += focusDelta
		suspicious += suspiciousDelta
		_, err = tx.Exec(ctx,
			`UPDATE candidates SET focus_lost_count = $2, suspicious_events_count = $3,
				integrity_score = $4, updated_at = NOW() WHERE candidate_id = $1`,
			e.CandidateID, focusLost, suspicious, scoring.Score(focusLost, suspicious))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Append inserts a lifecycle event without touching counters
// (interview_started / interview_ended markers).
func (r *Repository) Append(ctx context.Context, e *models.EventLog) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := insertEvent(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Filter narrows event queries.
type Filter struct {
	EventType models.EventType
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
}

func (f Filter) whereClause(args *[]interface{}) string {
	clause := ` WHERE candidate_id = $1`
	if f.EventType != "" {
		*args = append(*args, f.EventType)
		clause += ` AND event_type = $` + strconv.Itoa(len(*args))
	}
	if f.StartTime != nil {
		*args = append(*args, *f.StartTime)
		clause += ` AND timestamp >= $` + strconv.Itoa(len(*args))
	}
	if f.EndTime != nil {
		*args = append(*args, *f.EndTime)
		clause += ` AND timestamp <= $` + strconv.Itoa(len(*args))
	}
	return clause
}

const eventColumns = `id, candidate_id, event_type, timestamp, confidence,
	bbox_x, bbox_y, bbox_width, bbox_height, severity, metadata, created_at`

func scanEvent(rows pgx.Rows) (*models.EventLog, error) {
	var e models.EventLog
	var bx, by, bw, bh *float64
	if err := rows.Scan(&e.ID, &e.CandidateID, &e.EventType, &e.Timestamp, &e.Confidence,
		&bx, &by, &bw, &bh, &e.Severity, &e.Metadata, &e.CreatedAt); err != nil {
		return nil, err
	}
	if bx != nil && by != nil && bw != nil && bh != nil {
		e.BoundingBox = &models.BoundingBox{X: *bx, Y: *by, Width: *bw, Height: *bh}
	}
	return &e, nil
}

// ListByCandidate returns events newest first, honoring the filter.
// The default limit is 100.
func (r *Repository) ListByCandidate(ctx context.Context, candidateID string, f Filter) ([]models.EventLog, error) {
	args := []interface{}{candidateID}
	q := `SELECT ` + eventColumns + ` FROM event_logs` + f.whereClause(&args)
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	q += ` ORDER BY timestamp DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventLog
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// ListAscending returns the candidate's events in ascending timestamp order
// for report aggregation, optionally restricted to a time window.
func (r *Repository) ListAscending(ctx context.Context, candidateID string, startTime, endTime *time.Time) ([]models.EventLog, error) {
	args := []interface{}{candidateID}
	f := Filter{StartTime: startTime, EndTime: endTime}
	q := `SELECT ` + eventColumns + ` FROM event_logs` + f.whereClause(&args) + ` ORDER BY timestamp ASC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventLog
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// TypeStat is one row of the per-type stats endpoint.
type TypeStat struct {
	EventType      models.EventType `json:"event_type"`
	Count          int              `json:"count"`
	AvgConfidence  *float64         `json:"avg_confidence,omitempty"`
	LastOccurrence time.Time        `json:"last_occurrence"`
}

// StatsByType groups a candidate's events by type with count, average
// confidence and last occurrence, most frequent first.
func (r *Repository) StatsByType(ctx context.Context, candidateID string, startTime, endTime *time.Time) ([]TypeStat, error) {
	args := []interface{}{candidateID}
	f := Filter{StartTime: startTime, EndTime: endTime}
	q := `SELECT event_type, COUNT(*), AVG(confidence), MAX(timestamp)
		FROM event_logs` + f.whereClause(&args) + `
		GROUP BY event_type ORDER BY COUNT(*) DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []TypeStat
	for rows.Next() {
		var s TypeStat
		if err := rows.Scan(&s.EventType, &s.Count, &s.AvgConfidence, &s.LastOccurrence); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
