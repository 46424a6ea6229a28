package notifier

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/httpfetch/internal/transfer"
)

// TransferObserver sends a notification when a transfer succeeds or fails.
// Cancelled transfers are not announced.
type TransferObserver struct {
	transfer.NopObserver

	ctx    context.Context
	notif  Notifier
	title  string
	logger *slog.Logger
}

func NewTransferObserver(ctx context.Context, notif Notifier, title string, logger *slog.Logger) *TransferObserver {
	return &TransferObserver{ctx: ctx, notif: notif, title: title, logger: logger}
}

func (o *TransferObserver) TransferFinished(s transfer.Snapshot) {
	o.send("✅ Download finished: " + filepath.Base(s.Path) + " (" + humanize.Bytes(uint64(s.BytesRead)) + ")")
}

func (o *TransferObserver) TransferFailed(s transfer.Snapshot, err error) {
	if errors.Is(err, transfer.ErrCancelled) {
		return
	}

	o.send("❌ Download failed for " + filepath.Base(s.Path) + ": " + err.Error())
}

func (o *TransferObserver) send(content string) {
	if o.title != "" {
		content = "[" + o.title + "] " + content
	}

	if err := o.notif.Notify(o.ctx, content); err != nil {
		o.logger.Error("failed to send notification", "err", err)
	}
}
