package cleanup

import (
	"context"
	"time"

	"github.com/italolelis/httpfetch/internal/logctx"
)

// HistoryPruner deletes history records that finished before a cutoff.
type HistoryPruner interface {
	DeleteTransfersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneHistory removes transfer records older than keepDuration. A
// non-positive keepDuration keeps everything.
func PruneHistory(ctx context.Context, p HistoryPruner, keepDuration time.Duration) error {
	if keepDuration <= 0 {
		return nil
	}

	logger := logctx.LoggerFromContext(ctx)
	cutoff := time.Now().Add(-keepDuration)

	deleted, err := p.DeleteTransfersBefore(ctx, cutoff)
	if err != nil {
		logger.Error("failed to prune transfer history", "cutoff", cutoff, "err", err)

		return err
	}

	if deleted > 0 {
		logger.Info("pruned transfer history", "deleted", deleted, "retention", keepDuration.String())
	}

	return nil
}
