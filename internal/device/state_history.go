package device

import (
	"context"
	"time"
)

// State change sources recorded in history entries.
const (
	SourcePoll    = "poll"
	SourceCommand = "command"
)

// StateHistoryEntry records one observed attribute value for a device.
type StateHistoryEntry struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	Attribute  string    `json:"attribute"`
	Value      string    `json:"value"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StateHistoryRepository persists and queries state history.
type StateHistoryRepository interface {
	// Record stores one entry. RecordedAt defaults to now when zero.
	Record(ctx context.Context, entry StateHistoryEntry) error

	// Recent returns up to limit entries for a device, newest first.
	Recent(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error)

	// Prune deletes entries older than cutoff and reports how many went.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}
