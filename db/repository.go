package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pdf_summarizer/metrics"
)

// HistoryRepository reads and writes the summary_history table.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository wraps an open connection.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Insert stores one record and returns its row id.
func (r *HistoryRepository) Insert(ctx context.Context, rec metrics.SummaryRecord) (int64, error) {
	endedAt := rec.EndTime
	if endedAt.IsZero() {
		endedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO summary_history (
			kind, model, mode, language, status, duration_ms, error_message, ended_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.Model, rec.Mode, rec.Language, rec.Status,
		rec.Duration.Milliseconds(), rec.ErrorMsg, endedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert summary record: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]metrics.SummaryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, model, mode, language, status, duration_ms, error_message, ended_at_ms
		FROM summary_history
		ORDER BY ended_at_ms DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary history: %w", err)
	}
	defer rows.Close()

	var records []metrics.SummaryRecord
	for rows.Next() {
		var rec metrics.SummaryRecord
		var durationMS, endedAtMS int64
		if err := rows.Scan(&rec.Kind, &rec.Model, &rec.Mode, &rec.Language, &rec.Status, &durationMS, &rec.ErrorMsg, &endedAtMS); err != nil {
			return nil, fmt.Errorf("failed to scan summary record: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.EndTime = time.UnixMilli(endedAtMS)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (r *HistoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM summary_history").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count summary history: %w", err)
	}
	return n, nil
}

// DeleteBefore removes records that ended before cutoff.
func (r *HistoryRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM summary_history WHERE ended_at_ms < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune summary history: %w", err)
	}
	return res.RowsAffected()
}
