package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Open opens a database connection pool for the given driver.
// For SQLite the dsn is a file path (or ":memory:"); for MySQL it is a
// go-sql-driver DSN and parseTime=true is added if missing.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		return openSQLite(dsn)
	case DriverMySQL:
		return openMySQL(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func openSQLite(path string) (*sql.DB, error) {
	// Per-connection pragmas go into the DSN so every pooled connection gets them.
	// Transactions take the write lock at BEGIN (_txlock=immediate).
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting journal mode: %w", err)
		}
	}

	return db, nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "parseTime=") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}
