package db

import (
	"database/sql"
	"fmt"
)

// sqliteSchema is the full SQLite schema, one statement per entry.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS product_types (
    id          INTEGER PRIMARY KEY,
    user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    description TEXT,
    image_path  TEXT,
    count       INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE INDEX IF NOT EXISTS idx_product_types_user ON product_types(user_id)`,
	`CREATE TABLE IF NOT EXISTS items (
    id              INTEGER PRIMARY KEY,
    product_type_id INTEGER NOT NULL REFERENCES product_types(id) ON DELETE CASCADE,
    serial_number   TEXT NOT NULL UNIQUE,
    is_sold         BOOLEAN NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE INDEX IF NOT EXISTS idx_items_product_type ON items(product_type_id)`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
}

// mysqlSchema mirrors sqliteSchema for MySQL/InnoDB.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            BIGINT AUTO_INCREMENT PRIMARY KEY,
    name          VARCHAR(255) NOT NULL,
    email         VARCHAR(255) NOT NULL UNIQUE,
    username      VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS product_types (
    id          BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id     BIGINT NOT NULL,
    name        VARCHAR(255) NOT NULL,
    description TEXT,
    image_path  VARCHAR(512),
    count       INT NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_product_types_user (user_id),
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS items (
    id              BIGINT AUTO_INCREMENT PRIMARY KEY,
    product_type_id BIGINT NOT NULL,
    serial_number   VARCHAR(255) NOT NULL UNIQUE,
    is_sold         BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_items_product_type (product_type_id),
    FOREIGN KEY (product_type_id) REFERENCES product_types(id) ON DELETE CASCADE
) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        VARCHAR(64) PRIMARY KEY,
    expires_at DATETIME NOT NULL
) ENGINE=InnoDB`,
	"CREATE TABLE IF NOT EXISTS settings (\n    `key`   VARCHAR(64) PRIMARY KEY,\n    value TEXT NOT NULL\n) ENGINE=InnoDB",
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverSQLite:
		stmts = sqliteSchema
	case DriverMySQL:
		stmts = mysqlSchema
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	for i, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema (statement %d): %w", i+1, err)
		}
	}
	return nil
}
