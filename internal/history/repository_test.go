package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-qsys/migrations"
)

// openTestDB opens a migrated database in a temporary directory.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestRepositoryRecordAndGetHistory(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t).DB)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := repo.Record(ctx, Entry{
			CoreID:      "core-1",
			Component:   "Router1",
			Control:     "select.3",
			Value:       float64(i + 1),
			StringValue: "x",
			RecordedAt:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := repo.Record(ctx, Entry{CoreID: "core-1", Component: "Router1", Control: "mute.3", Value: 1}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := repo.GetHistory(ctx, "Router1", "select.3", 2)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetHistory() returned %d entries, want 2", len(got))
	}
	if got[0].Value != 3 || got[1].Value != 2 {
		t.Errorf("values = %v, %v; want newest first (3, 2)", got[0].Value, got[1].Value)
	}
	if !got[0].RecordedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("RecordedAt = %v", got[0].RecordedAt)
	}
	if got[0].CoreID != "core-1" || got[0].StringValue != "x" || got[0].ID == 0 {
		t.Errorf("entry = %+v", got[0])
	}
}

func TestRepositoryGetHistoryValidation(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t).DB)

	if _, err := repo.GetHistory(context.Background(), "", "select.1", 10); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("GetHistory() error = %v, want ErrInvalidQuery", err)
	}

	got, err := repo.GetHistory(context.Background(), "Router1", "select.1", 0)
	if err != nil || len(got) != 0 {
		t.Errorf("GetHistory() on empty table = %v, %v", got, err)
	}
}

func TestRepositoryPrune(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t).DB)
	ctx := context.Background()
	now := time.Now()

	old := Entry{CoreID: "core-1", Component: "Mixer", Control: "gain", RecordedAt: now.Add(-48 * time.Hour)}
	fresh := Entry{CoreID: "core-1", Component: "Mixer", Control: "gain", RecordedAt: now}
	for _, e := range []Entry{old, old, fresh} {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := repo.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}

	left, _ := repo.GetHistory(ctx, "Mixer", "gain", 10)
	if len(left) != 1 {
		t.Errorf("%d entries left, want 1", len(left))
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{50, 50},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
