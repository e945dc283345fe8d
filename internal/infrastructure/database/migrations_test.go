package database

import (
	"context"
	"embed"
	"testing"
	"time"
)

//go:embed testdata
var testMigrationsFS embed.FS

// useTestMigrations points the package at a testdata migration set and
// restores the real embedded set on cleanup.
func useTestMigrations(t *testing.T, dir string) {
	t.Helper()

	origFS := MigrationsFS
	origDir := MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})

	MigrationsFS = testMigrationsFS
	MigrationsDir = dir
}

// TestMigrate verifies migrations apply in order and are idempotent.
func TestMigrate(t *testing.T) {
	useTestMigrations(t, "testdata/good")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// 002 alters the table 001 creates, so success here also proves
	// ordering.
	if _, err := db.ExecContext(ctx,
		"INSERT INTO plants (name, species) VALUES (?, ?)", "fern", "nephrolepis",
	); err != nil {
		t.Fatalf("schema incomplete after Migrate(): %v", err)
	}

	var applied int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations",
	).Scan(&applied); err != nil {
		t.Fatalf("reading schema_migrations: %v", err)
	}
	if applied != 2 {
		t.Errorf("applied migrations = %d, want 2", applied)
	}

	// Rerun must be a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrate_NoMigrations verifies behaviour with an empty filesystem.
func TestMigrate_NoMigrations(t *testing.T) {
	origFS := MigrationsFS
	origDir := MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})

	var emptyFS embed.FS
	MigrationsFS = emptyFS
	MigrationsDir = "."

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

// TestMigrate_FailureRollsBack verifies a failing migration is not
// recorded as applied.
func TestMigrate_FailureRollsBack(t *testing.T) {
	useTestMigrations(t, "testdata/bad")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() should fail on broken SQL")
	}

	var applied int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations",
	).Scan(&applied); err != nil {
		t.Fatalf("reading schema_migrations: %v", err)
	}
	if applied != 0 {
		t.Errorf("applied migrations = %d, want 0 after rollback", applied)
	}
}

// TestLoadMigrations verifies file parsing and ordering.
func TestLoadMigrations(t *testing.T) {
	useTestMigrations(t, "testdata/good")

	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("loaded %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != "001" || migrations[0].Name != "plants" {
		t.Errorf("first migration = %s/%s, want 001/plants",
			migrations[0].Version, migrations[0].Name)
	}
	if migrations[1].Version != "002" || migrations[1].Name != "add_species" {
		t.Errorf("second migration = %s/%s, want 002/add_species",
			migrations[1].Version, migrations[1].Name)
	}
}
