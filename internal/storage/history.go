package storage

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/italolelis/httpfetch/internal/transfer"
)

// HistoryObserver records every transfer that ended, whatever the outcome.
type HistoryObserver struct {
	transfer.NopObserver

	ctx    context.Context
	repo   TransferWriteRepository
	logger *slog.Logger
}

func NewHistoryObserver(ctx context.Context, repo TransferWriteRepository, logger *slog.Logger) *HistoryObserver {
	return &HistoryObserver{ctx: ctx, repo: repo, logger: logger}
}

func (h *HistoryObserver) TransferFinished(s transfer.Snapshot) {
	h.record(s)
}

func (h *HistoryObserver) TransferFailed(s transfer.Snapshot, _ error) {
	h.record(s)
}

func (h *HistoryObserver) record(s transfer.Snapshot) {
	rec := NewTransferRecord(s)

	if err := h.repo.RecordTransfer(h.ctx, rec); err != nil {
		h.logger.Error("failed to record transfer", "transfer_id", rec.ID, "err", err)

		return
	}

	h.logger.Debug("transfer recorded", "transfer_id", rec.ID, "state", rec.State)
}

// NewTransferRecord converts a snapshot into a history record with a fresh
// id. Credentials embedded in the URL are masked.
func NewTransferRecord(s transfer.Snapshot) TransferRecord {
	return TransferRecord{
		ID:         uuid.NewString(),
		URL:        redactURL(s.URL),
		Path:       s.Path,
		State:      s.State.String(),
		BytesRead:  s.BytesRead,
		BytesTotal: s.BytesTotal,
		Error:      s.Error,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return u.Redacted()
}
