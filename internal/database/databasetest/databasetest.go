// Package databasetest opens throwaway SQLite stores for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/database"
	"gorm.io/gorm"
)

// Config returns an application config pointing at a fresh SQLite file.
func Config(t testing.TB) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		Env: "test",
		Database: config.DatabaseRuntimeConfig{
			Driver: config.DriverSQLite,
			Name:   filepath.Join(t.TempDir(), "newsletter.db"),
		},
	}
}

// Open returns a migrated store that is closed when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Connect(context.Background(), Config(t))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
