package progress

import (
	"errors"
	"io"
)

// DefaultInterval is used when a Reader is built with a non-positive interval.
const DefaultInterval int64 = 64 * 1024

// Func receives the cumulative number of bytes read and the expected total.
// A total of zero means the length is unknown.
type Func func(read int64, total int64)

// Reader wraps an io.Reader and reports progress via a callback every interval
// bytes, and once more when the underlying reader hits io.EOF.
type Reader struct {
	r          io.Reader
	total      int64
	interval   int64
	onProgress Func

	read       int64
	sinceLast  int64
	reportedAt int64
	done       bool
}

func NewReader(r io.Reader, total int64, interval int64, fn Func) *Reader {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if total < 0 {
		total = 0
	}

	return &Reader{
		r:          r,
		total:      total,
		interval:   interval,
		onProgress: fn,
		reportedAt: -1,
	}
}

// Read implements io.Reader.
func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.sinceLast += int64(n)

		if pr.sinceLast >= pr.interval {
			pr.report()
		}
	}

	if errors.Is(err, io.EOF) && !pr.done {
		pr.done = true
		pr.report()
	}

	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (pr *Reader) BytesRead() int64 {
	return pr.read
}

func (pr *Reader) report() {
	pr.sinceLast = 0

	if pr.onProgress == nil || pr.reportedAt == pr.read {
		return
	}

	pr.reportedAt = pr.read
	pr.onProgress(pr.read, pr.total)
}
