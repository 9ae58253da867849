package testutil

import (
	"testing"

	"gorm.io/gorm"

	"github.com/phishguard/phishguard/internal/database"
)

// MustOpenTestDB opens an isolated in-memory SQLite database with the schema migrated.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    "file::memory:?cache=private&_foreign_keys=1",
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
