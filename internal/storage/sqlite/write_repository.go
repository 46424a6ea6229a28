package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/italolelis/httpfetch/internal/storage"
)

// TransferWriteRepository implements storage.TransferWriteRepository
// and stores transfer records in SQLite.
type TransferWriteRepository struct {
	db *sql.DB
}

func NewTransferWriteRepository(db *sql.DB) *TransferWriteRepository {
	return &TransferWriteRepository{db: db}
}

func (r *TransferWriteRepository) RecordTransfer(ctx context.Context, rec storage.TransferRecord) error {
	var errText sql.NullString
	if rec.Error != "" {
		errText = sql.NullString{String: rec.Error, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transfers (id, url, file_path, state, bytes_read, bytes_total, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.Path, rec.State, rec.BytesRead, rec.BytesTotal, errText,
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)

	return err
}

// DeleteTransfersBefore removes records that finished before cutoff and
// returns how many were deleted.
func (r *TransferWriteRepository) DeleteTransfersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transfers WHERE finished_at != '' AND finished_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(timeLayout)
}
