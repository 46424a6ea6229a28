package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePruner struct {
	cutoff  time.Time
	calls   int
	deleted int64
	err     error
}

func (f *fakePruner) DeleteTransfersBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff

	return f.deleted, f.err
}

func TestPruneHistory(t *testing.T) {
	t.Run("uses retention as cutoff", func(t *testing.T) {
		p := &fakePruner{deleted: 3}

		assert.NoError(t, PruneHistory(context.Background(), p, 24*time.Hour))
		assert.Equal(t, 1, p.calls)
		assert.WithinDuration(t, time.Now().Add(-24*time.Hour), p.cutoff, time.Minute)
	})

	t.Run("disabled", func(t *testing.T) {
		p := &fakePruner{}

		assert.NoError(t, PruneHistory(context.Background(), p, 0))
		assert.Zero(t, p.calls)
	})

	t.Run("error", func(t *testing.T) {
		p := &fakePruner{err: errors.New("disk I/O error")}

		assert.EqualError(t, PruneHistory(context.Background(), p, time.Hour), "disk I/O error")
	})
}
