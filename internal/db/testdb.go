package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB creates a fresh in-memory SQLite database with the schema applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	// Every new connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := EnsureSchema(db, DriverSQLite); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// NewTestFileDB creates a file-backed SQLite database in a temporary
// directory. Unlike NewTestDB its pool holds several connections, so
// transactions from different goroutines contend for the write lock.
func NewTestFileDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(8)

	if err := EnsureSchema(db, DriverSQLite); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
