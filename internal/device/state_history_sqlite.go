package device

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/lantuya-core/internal/infrastructure/database"
)

// SQLiteStateHistory implements StateHistoryRepository on the service
// database. The state_history table is created by the database migrations.
type SQLiteStateHistory struct {
	db *database.DB
}

// NewSQLiteStateHistory returns a repository backed by db.
func NewSQLiteStateHistory(db *database.DB) *SQLiteStateHistory {
	return &SQLiteStateHistory{db: db}
}

// Record stores one entry. RecordedAt defaults to now when zero.
func (r *SQLiteStateHistory) Record(ctx context.Context, entry StateHistoryEntry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO state_history (device_id, attribute, value, source, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.DeviceID, entry.Attribute, entry.Value, entry.Source, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("recording state history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for a device, newest first.
func (r *SQLiteStateHistory) Recent(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error) {
	rows, err := r.db.DB.QueryContext(ctx,
		`SELECT id, device_id, attribute, value, source, recorded_at
		 FROM state_history
		 WHERE device_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var entries []StateHistoryEntry
	for rows.Next() {
		var e StateHistoryEntry
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Attribute, &e.Value, &e.Source, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning state history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history rows: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than cutoff.
func (r *SQLiteStateHistory) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM state_history WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning state history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return n, nil
}
