package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no transfer matches the requested id.
var ErrNotFound = errors.New("transfer not found")

// TransferRecord is one finished transfer kept in the history.
type TransferRecord struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Path       string    `json:"path"`
	State      string    `json:"state"`
	BytesRead  int64     `json:"bytes_read"`
	BytesTotal int64     `json:"bytes_total"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type TransferReadRepository interface {
	ListTransfers(ctx context.Context, limit int) ([]TransferRecord, error)
	GetTransfer(ctx context.Context, id string) (TransferRecord, error)
}

type TransferWriteRepository interface {
	RecordTransfer(ctx context.Context, record TransferRecord) error
	DeleteTransfersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TransferRepository reads and writes the transfer history.
type TransferRepository interface {
	TransferReadRepository
	TransferWriteRepository
}
