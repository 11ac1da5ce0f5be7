// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/database"
)

type schemaLevel int

const (
	schemaNone schemaLevel = iota
	schemaMigrated
	schemaSeeded
)

// TestDBOption selects how much schema MustOpenTestDB prepares.
type TestDBOption func(*schemaLevel)

// WithAutoMigrate creates the tables.
func WithAutoMigrate() TestDBOption {
	return func(level *schemaLevel) {
		if *level < schemaMigrated {
			*level = schemaMigrated
		}
	}
}

// WithSeedData creates the tables and inserts the default permissions and roles.
func WithSeedData() TestDBOption {
	return func(level *schemaLevel) { *level = schemaSeeded }
}

// MustOpenTestDB opens a private in-memory SQLite database that is closed when
// the test finishes.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	level := schemaNone
	for _, opt := range opts {
		opt(&level)
	}

	// shared cache keeps the database alive across pooled connections; the
	// random name keeps parallel tests apart.
	dsn := fmt.Sprintf("file:grantstore_%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	switch level {
	case schemaSeeded:
		require.NoError(t, database.AutoMigrateAndSeed(db))
	case schemaMigrated:
		require.NoError(t, database.AutoMigrate(db))
	}
	return db
}
