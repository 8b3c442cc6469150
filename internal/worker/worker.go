package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/proctorly/backend/internal/candidates"
	"github.com/proctorly/backend/internal/media"
	"github.com/proctorly/backend/internal/models"
	"github.com/proctorly/backend/pkg/queue"
	"github.com/proctorly/backend/pkg/storage"
)

// ArchiveProcessor processes recording archive jobs: stream the local upload
// to S3, update the recording row and candidate, remove the local file.
type ArchiveProcessor struct {
	recRepo       *media.Repository
	candidateRepo *candidates.Repository
	s3            *storage.S3
	queue         *queue.Queue
	logger        *zap.Logger
}

// NewArchiveProcessor creates a recording archive processor.
func NewArchiveProcessor(recRepo *media.Repository, candidateRepo *candidates.Repository, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *ArchiveProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveProcessor{recRepo: recRepo, candidateRepo: candidateRepo, s3: s3, queue: q, logger: logger}
}

// Process executes one archive job.
func (p *ArchiveProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeArchiveRecording {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ArchiveRecordingPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rec, err := p.recRepo.GetByID(ctx, payload.RecordingID)
	if err != nil {
		return fmt.Errorf("recording not found: %s", payload.RecordingID)
	}
	if rec.Status == models.RecordingStatusArchived {
		p.logger.Info("recording already archived", zap.String("recording_id", rec.ID.String()))
		return nil
	}
	if err := p.recRepo.UpdateStatus(ctx, rec.ID, models.RecordingStatusArchiving); err != nil {
		return fmt.Errorf("mark archiving: %w", err)
	}

	f, err := os.Open(payload.LocalPath)
	if err != nil {
		_ = p.recRepo.UpdateStatus(ctx, rec.ID, models.RecordingStatusFailed)
		return fmt.Errorf("open local recording: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		_ = p.recRepo.UpdateStatus(ctx, rec.ID, models.RecordingStatusFailed)
		return fmt.Errorf("stat local recording: %w", err)
	}

	key := storage.RecordingKey(payload.CandidateID, rec.ID.String())
	contentType := rec.ContentType
	if contentType == "" {
		contentType = "video/webm"
	}
	s3URL, err := p.s3.Upload(ctx, key, contentType, f, info.Size())
	if err != nil {
		_ = p.recRepo.UpdateStatus(ctx, rec.ID, models.RecordingStatusFailed)
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.recRepo.UpdateArchiveResult(ctx, rec.ID, key, s3URL, info.Size()); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	if err := p.candidateRepo.SetVideoS3Key(ctx, payload.CandidateID, key); err != nil {
		p.logger.Error("update candidate s3 key failed", zap.Error(err), zap.String("candidate_id", payload.CandidateID))
	}

	// Local copy is redundant once the object is durable in S3.
	if err := os.Remove(payload.LocalPath); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("remove local recording failed", zap.Error(err), zap.String("path", payload.LocalPath))
	}

	p.logger.Info("recording archived", zap.String("recording_id", rec.ID.String()), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ArchiveProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("archive worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
