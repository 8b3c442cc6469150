package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/proctorly/backend/pkg/storage"
)

// ErrRecordingMissing is returned when the recording reference exists but
// the bytes are absent on the backing store.
var ErrRecordingMissing = errors.New("recording not found on backing store")

// RangeReader opens a bounded reader over an inclusive byte range of a
// stored recording. Implementations return the object's total size on Stat
// so the handler can validate ranges before opening a reader.
type RangeReader interface {
	Stat(ctx context.Context) (size int64, err error)
	OpenRange(ctx context.Context, r ByteRange) (io.ReadCloser, error)
}

// diskReader serves a recording straight from the local upload directory,
// used while the archive job has not moved it to S3 yet.
type diskReader struct {
	path string
}

// NewDiskReader creates a RangeReader over a local file.
func NewDiskReader(path string) RangeReader { return &diskReader{path: path} }

func (d *diskReader) Stat(_ context.Context) (int64, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrRecordingMissing
		}
		return 0, fmt.Errorf("stat recording: %w", err)
	}
	return info.Size(), nil
}

type fileSection struct {
	f *os.File
	r *io.SectionReader
}

func (s *fileSection) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *fileSection) Close() error               { return s.f.Close() }

func (d *diskReader) OpenRange(_ context.Context, r ByteRange) (io.ReadCloser, error) {
	f, err := os.Open(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRecordingMissing
		}
		return nil, fmt.Errorf("open recording: %w", err)
	}
	return &fileSection{f: f, r: io.NewSectionReader(f, r.Start, r.Length())}, nil
}

// s3Reader serves an archived recording with ranged GetObject calls, so
// seeks never download the whole object.
type s3Reader struct {
	s3  *storage.S3
	key string
}

// NewS3Reader creates a RangeReader over an archived S3 object.
func NewS3Reader(s3 *storage.S3, key string) RangeReader { return &s3Reader{s3: s3, key: key} }

func (s *s3Reader) Stat(ctx context.Context) (int64, error) {
	size, _, err := s.s3.Head(ctx, s.key)
	if err != nil {
		if storage.IsNotFound(err) {
			return 0, ErrRecordingMissing
		}
		return 0, err
	}
	return size, nil
}

func (s *s3Reader) OpenRange(ctx context.Context, r ByteRange) (io.ReadCloser, error) {
	body, err := s.s3.GetRange(ctx, s.key, r.Start, r.End)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrRecordingMissing
		}
		return nil, err
	}
	return body, nil
}
