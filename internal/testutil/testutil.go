// Package testutil provides testing utilities for integration tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/config"
	"github.com/reelscout/reelscout/internal/database"
)

// TestDB wraps a migrated sqlite database living in a test temp dir.
type TestDB struct {
	DB     *database.DB
	Logger zerolog.Logger
}

// NewTestDB creates a new test database in a temp directory and runs
// migrations. The database is closed automatically when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := database.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDB{
		DB:     db,
		Logger: NewTestLogger(t),
	}
}

// NewTestLogger creates a test logger that outputs to t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

// NopLogger returns a no-op logger for tests that don't need output.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// Movie builds a catalog movie with the given id and title.
func Movie(id int, title string) catalog.Item {
	return catalog.Item{ID: id, MediaType: catalog.Movie, Title: title}
}

// Series builds a catalog series with the given id and title.
func Series(id int, title string) catalog.Item {
	return catalog.Item{ID: id, MediaType: catalog.Series, Title: title}
}
