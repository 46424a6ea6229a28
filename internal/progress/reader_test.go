package progress

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	read  int64
	total int64
}

func collect(calls *[]call) Func {
	return func(read, total int64) {
		*calls = append(*calls, call{read, total})
	}
}

func TestReader_ReportsEveryIntervalAndAtEOF(t *testing.T) {
	var calls []call

	src := iotest.OneByteReader(strings.NewReader(strings.Repeat("x", 1000)))
	pr := NewReader(src, 1000, 500, collect(&calls))

	n, err := io.Copy(io.Discard, pr)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
	assert.Equal(t, []call{{500, 1000}, {1000, 1000}}, calls)
	assert.Equal(t, int64(1000), pr.BytesRead())
}

func TestReader_UnknownTotal(t *testing.T) {
	var calls []call

	pr := NewReader(bytes.NewReader(make([]byte, 10)), -1, 4, collect(&calls))

	_, err := io.Copy(io.Discard, pr)
	require.NoError(t, err)
	require.NotEmpty(t, calls)

	last := calls[len(calls)-1]
	assert.Equal(t, int64(10), last.read)
	assert.Zero(t, last.total)

	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].read, calls[i-1].read)
	}
}

func TestReader_EmptyBody(t *testing.T) {
	var calls []call

	pr := NewReader(strings.NewReader(""), 0, 0, collect(&calls))

	_, err := io.Copy(io.Discard, pr)
	require.NoError(t, err)
	assert.Equal(t, []call{{0, 0}}, calls)
}

func TestReader_PropagatesErrors(t *testing.T) {
	var calls []call

	pr := NewReader(iotest.ErrReader(io.ErrUnexpectedEOF), 100, 10, collect(&calls))

	_, err := io.Copy(io.Discard, pr)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Empty(t, calls)
}

func TestReader_NilCallback(t *testing.T) {
	pr := NewReader(strings.NewReader("abc"), 3, 1, nil)

	b, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}
