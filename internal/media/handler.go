package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/proctorly/backend/config"
	"github.com/proctorly/backend/internal/candidates"
	"github.com/proctorly/backend/internal/models"
	"github.com/proctorly/backend/pkg/queue"
	"github.com/proctorly/backend/pkg/response"
	"github.com/proctorly/backend/pkg/storage"
)

// Handler handles recording upload and range-streaming endpoints.
type Handler struct {
	repo          *Repository
	candidateRepo *candidates.Repository
	s3            *storage.S3 // optional: streaming falls back to local disk when nil
	queue         *queue.Queue
	cfg           config.UploadConfig
	logger        *zap.Logger
}

// NewHandler creates a media handler.
func NewHandler(repo *Repository, candidateRepo *candidates.Repository, s3 *storage.S3, q *queue.Queue, cfg config.UploadConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, candidateRepo: candidateRepo, s3: s3, queue: q, cfg: cfg, logger: logger}
}

// Upload handles POST /api/upload: stores the multipart video on local disk,
// records it against the candidate and enqueues the S3 archive job. A file
// written before any later failure is removed best-effort.
func (h *Handler) Upload(c *gin.Context) {
	candidateID := c.PostForm("candidateId")
	if candidateID == "" {
		response.BadRequest(c, "Candidate ID is required")
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		response.BadRequest(c, "No video file provided")
		return
	}
	maxSize := int64(h.cfg.MaxSizeMB) * 1024 * 1024
	if maxSize > 0 && file.Size > maxSize {
		response.BadRequest(c, fmt.Sprintf("video exceeds %dMB limit", h.cfg.MaxSizeMB))
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") {
		response.BadRequest(c, "Only video files are allowed")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.candidateRepo.GetByCandidateID(ctx, candidateID); err != nil {
		if errors.Is(err, candidates.ErrNotFound) {
			response.NotFound(c, "candidate not found")
			return
		}
		h.logger.Error("lookup candidate for upload failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to upload video")
		return
	}

	dir := h.cfg.Dir
	if dir == "" {
		dir = filepath.Join("uploads", "videos")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.logger.Error("create upload dir failed", zap.Error(err), zap.String("dir", dir))
		response.Internal(c, "failed to upload video")
		return
	}
	filename := fmt.Sprintf("recording_%s_%d.webm", candidateID, time.Now().UnixMilli())
	path := filepath.Join(dir, filename)

	if err := c.SaveUploadedFile(file, path); err != nil {
		h.logger.Error("save uploaded video failed", zap.Error(err), zap.String("path", path))
		response.Internal(c, "failed to upload video")
		return
	}

	rec := &models.Recording{
		CandidateID: candidateID,
		LocalPath:   path,
		FileSize:    file.Size,
		ContentType: contentType,
		Status:      models.RecordingStatusUploaded,
	}
	if err := h.repo.Create(ctx, rec); err != nil {
		_ = os.Remove(path)
		h.logger.Error("create recording row failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to upload video")
		return
	}
	if err := h.candidateRepo.SetVideoPath(ctx, candidateID, path); err != nil {
		_ = os.Remove(path)
		h.logger.Error("update candidate video path failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to upload video")
		return
	}

	if h.queue != nil && h.s3 != nil {
		payload := queue.ArchiveRecordingPayload{
			RecordingID: rec.ID,
			CandidateID: candidateID,
			LocalPath:   path,
		}
		if err := h.queue.EnqueueArchiveRecording(ctx, payload); err != nil {
			// Upload itself succeeded; archival will be retried by ops.
			h.logger.Warn("enqueue archive job failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		}
	}

	response.OK(c, gin.H{
		"filePath":    path,
		"fileName":    filename,
		"fileSize":    file.Size,
		"candidateId": candidateID,
	})
}

// DownloadURL handles GET /api/upload/:candidateId/download-url: returns a
// pre-signed S3 URL for the archived recording so large downloads bypass
// the API server.
func (h *Handler) DownloadURL(c *gin.Context) {
	candidateID := c.Param("candidateId")
	ctx := c.Request.Context()

	if h.s3 == nil {
		response.NotFound(c, "recording archive storage not configured")
		return
	}
	if _, err := h.candidateRepo.GetByCandidateID(ctx, candidateID); err != nil {
		if errors.Is(err, candidates.ErrNotFound) {
			response.NotFound(c, "candidate not found")
			return
		}
		h.logger.Error("lookup candidate for download url failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to generate download URL")
		return
	}

	rec, err := h.repo.GetLatestByCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, ErrNoRecording) {
			response.NotFound(c, "video recording not found")
			return
		}
		h.logger.Error("lookup recording for download url failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to generate download URL")
		return
	}
	if rec.S3Key == "" {
		response.NotFound(c, "recording not archived yet")
		return
	}

	expires := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedDownloadURL(ctx, rec.S3Key, expires)
	if err != nil {
		h.logger.Error("presign download url failed", zap.Error(err), zap.String("s3_key", rec.S3Key))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{
		"url":       url,
		"expiresAt": time.Now().Add(expires),
	})
}

// Stream handles GET /api/upload/:candidateId: serves the candidate's
// recording with byte-range support for seek and resume. Whole-object
// requests get 200; ranged requests get 206 with Content-Range framing.
func (h *Handler) Stream(c *gin.Context) {
	candidateID := c.Param("candidateId")
	ctx := c.Request.Context()

	candidate, err := h.candidateRepo.GetByCandidateID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, candidates.ErrNotFound) {
			response.NotFound(c, "candidate not found")
			return
		}
		h.logger.Error("lookup candidate for stream failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to serve video")
		return
	}

	reader, contentType, err := h.readerFor(c, candidate)
	if err != nil {
		if errors.Is(err, ErrNoRecording) {
			response.NotFound(c, "video recording not found")
			return
		}
		h.logger.Error("resolve recording failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to serve video")
		return
	}

	size, err := reader.Stat(ctx)
	if err != nil {
		if errors.Is(err, ErrRecordingMissing) {
			response.NotFound(c, "video file not found on storage")
			return
		}
		h.logger.Error("stat recording failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to serve video")
		return
	}

	rangeHeader := c.GetHeader("Range")
	status := http.StatusOK
	byteRange := ByteRange{Start: 0, End: size - 1}
	if rangeHeader != "" {
		byteRange, err = ParseRange(rangeHeader, size)
		if err != nil {
			response.RangeNotSatisfiable(c, size, "requested range not satisfiable")
			return
		}
		status = http.StatusPartialContent
		c.Header("Content-Range", byteRange.ContentRange(size))
	}
	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Length", strconv.FormatInt(byteRange.Length(), 10))
	c.Header("Content-Type", contentType)

	body, err := reader.OpenRange(ctx, byteRange)
	if err != nil {
		if errors.Is(err, ErrRecordingMissing) {
			response.NotFound(c, "video file not found on storage")
			return
		}
		h.logger.Error("open recording range failed", zap.Error(err), zap.String("candidate_id", candidateID))
		response.Internal(c, "failed to serve video")
		return
	}
	defer body.Close()

	c.Status(status)
	h.copyChunks(c, body, candidateID)
}

// readerFor picks the streaming backend: S3 once the recording is archived,
// the local upload file before that.
func (h *Handler) readerFor(c *gin.Context, candidate *models.Candidate) (RangeReader, string, error) {
	contentType := "video/webm"
	rec, err := h.repo.GetLatestByCandidate(c.Request.Context(), candidate.CandidateID)
	if err != nil && !errors.Is(err, ErrNoRecording) {
		return nil, "", err
	}
	if rec != nil && rec.ContentType != "" {
		contentType = rec.ContentType
	}

	if h.s3 != nil {
		if rec != nil && rec.S3Key != "" {
			return NewS3Reader(h.s3, rec.S3Key), contentType, nil
		}
		if candidate.VideoS3Key != "" {
			return NewS3Reader(h.s3, candidate.VideoS3Key), contentType, nil
		}
	}
	if rec != nil && rec.LocalPath != "" {
		return NewDiskReader(rec.LocalPath), contentType, nil
	}
	if candidate.VideoPath != "" {
		return NewDiskReader(candidate.VideoPath), contentType, nil
	}
	return nil, "", ErrNoRecording
}

// copyChunks streams the body to the client in bounded chunks, flushing
// between reads and stopping as soon as the client goes away. The read
// handle is released by the deferred Close in Stream.
func (h *Handler) copyChunks(c *gin.Context, body io.Reader, candidateID string) {
	chunkSize := h.cfg.ChunkSizeKB * 1024
	if chunkSize <= 0 {
		chunkSize = 512 * 1024
	}
	buf := make([]byte, chunkSize)
	ctx := c.Request.Context()
	for {
		if ctx.Err() != nil {
			h.logger.Debug("client disconnected mid-stream", zap.String("candidate_id", candidateID))
			return
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := c.Writer.Write(buf[:n]); writeErr != nil {
				h.logger.Debug("stream write aborted", zap.Error(writeErr), zap.String("candidate_id", candidateID))
				return
			}
			c.Writer.Flush()
		}
		if readErr != nil {
			if readErr != io.EOF {
				h.logger.Warn("stream read failed", zap.Error(readErr), zap.String("candidate_id", candidateID))
			}
			return
		}
	}
}
