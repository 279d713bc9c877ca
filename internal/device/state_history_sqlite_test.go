package device

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/lantuya-core/internal/infrastructure/database"
)

func openHistoryRepo(t *testing.T) *SQLiteStateHistory {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewSQLiteStateHistory(db)
}

func TestStateHistoryRecordAndRecent(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []StateHistoryEntry{
		{DeviceID: "dev-1", Attribute: AttrPower, Value: "true", Source: SourcePoll, RecordedAt: base},
		{DeviceID: "dev-1", Attribute: AttrBrightness, Value: "128", Source: SourceCommand, RecordedAt: base.Add(time.Minute)},
		{DeviceID: "dev-2", Attribute: AttrPower, Value: "false", Source: SourcePoll, RecordedAt: base},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := repo.Recent(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].Attribute != AttrBrightness || got[1].Attribute != AttrPower {
		t.Errorf("Recent order = %s, %s", got[0].Attribute, got[1].Attribute)
	}
	if got[0].Source != SourceCommand {
		t.Errorf("source = %q, want %q", got[0].Source, SourceCommand)
	}
}

func TestStateHistoryRecentLimit(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.Record(ctx, StateHistoryEntry{
			DeviceID:   "dev-1",
			Attribute:  AttrPower,
			Value:      "true",
			Source:     SourcePoll,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := repo.Recent(ctx, "dev-1", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Recent returned %d entries, want 3", len(got))
	}
}

func TestStateHistoryRecordDefaultsTimestamp(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, StateHistoryEntry{
		DeviceID:  "dev-1",
		Attribute: AttrPower,
		Value:     "true",
		Source:    SourcePoll,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := repo.Recent(ctx, "dev-1", 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].RecordedAt.IsZero() {
		t.Errorf("entry timestamp not defaulted: %+v", got)
	}
}

func TestStateHistoryPrune(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	old := StateHistoryEntry{DeviceID: "dev-1", Attribute: AttrPower, Value: "true", Source: SourcePoll, RecordedAt: base}
	recent := old
	recent.RecordedAt = base.Add(48 * time.Hour)
	for _, e := range []StateHistoryEntry{old, recent} {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	pruned, err := repo.Prune(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Prune removed %d rows, want 1", pruned)
	}

	got, err := repo.Recent(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("%d entries remain, want 1", len(got))
	}
}
