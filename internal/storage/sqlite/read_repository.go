package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/italolelis/httpfetch/internal/storage"
)

const selectTransfers = `SELECT id, url, file_path, state, bytes_read, bytes_total, error, started_at, finished_at FROM transfers`

type TransferReadRepository struct {
	db *sql.DB
}

func NewTransferReadRepository(dbConn *sql.DB) *TransferReadRepository {
	return &TransferReadRepository{db: dbConn}
}

// ListTransfers returns the most recently finished transfers first, up to limit.
func (r *TransferReadRepository) ListTransfers(ctx context.Context, limit int) ([]storage.TransferRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectTransfers+` ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []storage.TransferRecord

	for rows.Next() {
		record, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}

		transfers = append(transfers, record)
	}

	return transfers, rows.Err()
}

func (r *TransferReadRepository) GetTransfer(ctx context.Context, id string) (storage.TransferRecord, error) {
	record, err := scanTransfer(r.db.QueryRowContext(ctx, selectTransfers+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.TransferRecord{}, storage.ErrNotFound
	}

	return record, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(s scanner) (storage.TransferRecord, error) {
	var (
		record                storage.TransferRecord
		errText               sql.NullString
		startedAt, finishedAt sql.NullString
	)

	err := s.Scan(&record.ID, &record.URL, &record.Path, &record.State, &record.BytesRead, &record.BytesTotal,
		&errText, &startedAt, &finishedAt)
	if err != nil {
		return storage.TransferRecord{}, err
	}

	record.Error = errText.String
	record.StartedAt = parseTime(startedAt)
	record.FinishedAt = parseTime(finishedAt)

	return record, nil
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}

	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}
	}

	return t
}
