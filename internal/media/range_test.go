package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		name   string
		header string
		want   ByteRange
	}{
		{"explicit", "bytes=0-99", ByteRange{Start: 0, End: 99}},
		{"interior", "bytes=200-499", ByteRange{Start: 200, End: 499}},
		{"open ended", "bytes=500-", ByteRange{Start: 500, End: 999}},
		{"single byte", "bytes=999-999", ByteRange{Start: 999, End: 999}},
		{"end clamped to last byte", "bytes=990-2000", ByteRange{Start: 990, End: 999}},
		{"suffix", "bytes=-100", ByteRange{Start: 900, End: 999}},
		{"suffix larger than object", "bytes=-5000", ByteRange{Start: 0, End: 999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRangeRejects(t *testing.T) {
	const size = 1000

	headers := []string{
		"",
		"bytes=",
		"bytes=abc-def",
		"bytes=100",
		"bytes=500-100",
		"bytes=1000-",
		"bytes=1000-1500",
		"bytes=-0",
		"bytes=0-99,200-299",
		"bits=0-99",
	}
	for _, h := range headers {
		_, err := ParseRange(h, size)
		assert.ErrorIs(t, err, ErrInvalidRange, "header %q", h)
	}

	_, err := ParseRange("bytes=0-10", 0)
	assert.ErrorIs(t, err, ErrInvalidRange, "empty object")
}

func TestByteRangeHeaders(t *testing.T) {
	r := ByteRange{Start: 200, End: 499}
	assert.Equal(t, int64(300), r.Length())
	assert.Equal(t, "bytes 200-499/1000", r.ContentRange(1000))
}
