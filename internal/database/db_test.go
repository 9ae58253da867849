package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard/internal/models"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file::memory:?cache=private"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	entry := models.StateEntry{Key: "alerts", Value: []byte(`[]`)}
	require.NoError(t, db.Create(&entry).Error)

	var loaded models.StateEntry
	require.NoError(t, db.First(&loaded, "key = ?", "alerts").Error)
	require.JSONEq(t, `[]`, string(loaded.Value))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "phishguard",
		Password: "secret",
		Name:     "alerts",
		Host:     "db.internal",
		Port:     5433,
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db.internal")
	require.Contains(t, dsn, "port=5433")
	require.Contains(t, dsn, "sslmode=disable")

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User: "phishguard",
		Name: "alerts",
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "phishguard@tcp(localhost:3306)/alerts")
	require.Contains(t, dsn, "parseTime=True")

	_, err = buildMySQLDSN(Config{User: "phishguard"})
	require.Error(t, err)
}
