package media

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidRange marks a malformed or unsatisfiable Range header. Handlers
// surface it as 416, never as a silently clamped or truncated slice.
var ErrInvalidRange = errors.New("invalid byte range")

// ByteRange is an inclusive [Start, End] slice of an object.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// ContentRange formats the Content-Range header value for a 206 response.
func (r ByteRange) ContentRange(totalSize int64) string {
	return "bytes " + strconv.FormatInt(r.Start, 10) + "-" + strconv.FormatInt(r.End, 10) +
		"/" + strconv.FormatInt(totalSize, 10)
}

// ParseRange parses a single-range Range header ("bytes=start-end",
// "bytes=start-", or the suffix form "bytes=-n") against an object of
// totalSize bytes.
//
// An end past the last byte is clamped to size-1. A start at or past the
// object size, an inverted range, or anything malformed is rejected with
// ErrInvalidRange. Multi-range requests are not supported.
func ParseRange(header string, totalSize int64) (ByteRange, error) {
	const prefix = "bytes="
	if totalSize <= 0 || !strings.HasPrefix(header, prefix) {
		return ByteRange{}, ErrInvalidRange
	}
	spec := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if spec == "" || strings.Contains(spec, ",") {
		return ByteRange{}, ErrInvalidRange
	}
	dash := strings.Index(spec, "-")
	if dash < 0 {
		return ByteRange{}, ErrInvalidRange
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	if startStr == "" {
		// Suffix form: last n bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return ByteRange{}, ErrInvalidRange
		}
		if n > totalSize {
			n = totalSize
		}
		return ByteRange{Start: totalSize - n, End: totalSize - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= totalSize {
		return ByteRange{}, ErrInvalidRange
	}
	end := totalSize - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return ByteRange{}, ErrInvalidRange
		}
		if end > totalSize-1 {
			end = totalSize - 1
		}
	}
	return ByteRange{Start: start, End: end}, nil
}
