package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/italolelis/httpfetch/internal/storage"
	"github.com/italolelis/httpfetch/internal/telemetry"
)

// InstrumentedTransferRepository wraps the SQLite repositories with telemetry.
type InstrumentedTransferRepository struct {
	read      *TransferReadRepository
	write     *TransferWriteRepository
	telemetry *telemetry.Telemetry
}

// NewInstrumentedTransferRepository creates a new instrumented transfer repository.
func NewInstrumentedTransferRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedTransferRepository {
	return &InstrumentedTransferRepository{
		read:      NewTransferReadRepository(dbConn),
		write:     NewTransferWriteRepository(dbConn),
		telemetry: tel,
	}
}

// ListTransfers lists the history with telemetry.
func (r *InstrumentedTransferRepository) ListTransfers(ctx context.Context, limit int) ([]storage.TransferRecord, error) {
	var result []storage.TransferRecord

	err := r.telemetry.InstrumentDBOperation(ctx, "list_transfers", func(ctx context.Context) error {
		var err error

		result, err = r.read.ListTransfers(ctx, limit)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetTransfer looks up one transfer with telemetry.
func (r *InstrumentedTransferRepository) GetTransfer(ctx context.Context, id string) (storage.TransferRecord, error) {
	var result storage.TransferRecord

	err := r.telemetry.InstrumentDBOperation(ctx, "get_transfer", func(ctx context.Context) error {
		var err error

		result, err = r.read.GetTransfer(ctx, id)

		return err
	})

	return result, err
}

// RecordTransfer stores a transfer with telemetry.
func (r *InstrumentedTransferRepository) RecordTransfer(ctx context.Context, rec storage.TransferRecord) error {
	return r.telemetry.InstrumentDBOperation(ctx, "record_transfer", func(ctx context.Context) error {
		return r.write.RecordTransfer(ctx, rec)
	})
}

// DeleteTransfersBefore prunes the history with telemetry.
func (r *InstrumentedTransferRepository) DeleteTransfersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64

	err := r.telemetry.InstrumentDBOperation(ctx, "delete_transfers", func(ctx context.Context) error {
		var err error

		deleted, err = r.write.DeleteTransfersBefore(ctx, cutoff)

		return err
	})

	return deleted, err
}
