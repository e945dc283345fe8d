package device

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// setupHistoryTestDB creates an in-memory SQLite database with the
// state_history table.
func setupHistoryTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE state_history (
			id TEXT PRIMARY KEY,
			channel TEXT NOT NULL,
			value REAL NOT NULL,
			source TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestSQLiteStateHistory_RecordAndList(t *testing.T) {
	repo := NewSQLiteStateHistory(setupHistoryTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tr := Transition{
			ID:         uuid.New().String(),
			Channel:    ChannelFan,
			Value:      float64(i % 2),
			Source:     SourceAutomation,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Record(ctx, tr); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}
	// One entry for another channel, to check filtering.
	if err := repo.Record(ctx, Transition{
		ID:         uuid.New().String(),
		Channel:    ChannelLight,
		Value:      0.5,
		Source:     SourceManual,
		RecordedAt: base.Add(5 * time.Minute),
	}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	fanOnly, err := repo.List(ctx, ChannelFan, 10)
	if err != nil {
		t.Fatalf("List(fan) returned error: %v", err)
	}
	if len(fanOnly) != 3 {
		t.Fatalf("List(fan) returned %d entries, want 3", len(fanOnly))
	}
	// Newest first.
	for i := 1; i < len(fanOnly); i++ {
		if fanOnly[i].RecordedAt.After(fanOnly[i-1].RecordedAt) {
			t.Errorf("entries not ordered newest first at index %d", i)
		}
	}

	all, err := repo.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List(all) returned error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List(all) returned %d entries, want 4", len(all))
	}
	if all[0].Channel != ChannelLight {
		t.Errorf("newest entry channel = %q, want light", all[0].Channel)
	}
}

func TestSQLiteStateHistory_LimitClamped(t *testing.T) {
	repo := NewSQLiteStateHistory(setupHistoryTestDB(t))
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		tr := Transition{
			ID:         fmt.Sprintf("tr-%03d", i),
			Channel:    ChannelHeater,
			Value:      float64(i % 2),
			Source:     SourceAutomation,
			RecordedAt: time.Date(2026, 3, 14, 0, 0, i, 0, time.UTC),
		}
		if err := repo.Record(ctx, tr); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	defaulted, err := repo.List(ctx, ChannelHeater, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(defaulted) != defaultHistoryLimit {
		t.Errorf("List with limit 0 returned %d entries, want default %d", len(defaulted), defaultHistoryLimit)
	}
}

func TestSQLiteStateHistory_RejectsInvalidInput(t *testing.T) {
	repo := NewSQLiteStateHistory(setupHistoryTestDB(t))
	ctx := context.Background()

	if err := repo.Record(ctx, Transition{Channel: ChannelFan}); err == nil {
		t.Error("Record without ID expected error, got nil")
	}
	if err := repo.Record(ctx, Transition{ID: "x", Channel: "bogus"}); err == nil {
		t.Error("Record with unknown channel expected error, got nil")
	}
	if _, err := repo.List(ctx, "bogus", 10); err == nil {
		t.Error("List with unknown channel expected error, got nil")
	}
}
