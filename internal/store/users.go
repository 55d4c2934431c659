package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/inventar/internal/model"
)

const userColumns = `id, name, email, username, password_hash, created_at`

func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user.
func CreateUser(ctx context.Context, db DBTX, name, email, username, passwordHash string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, username, password_hash) VALUES (?, ?, ?, ?)`,
		name, email, username, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db DBTX, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email address.
func GetUserByEmail(ctx context.Context, db DBTX, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username.
func GetUserByUsername(ctx context.Context, db DBTX, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}
