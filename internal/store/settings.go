package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// The insert ignores a unique violation and the value is always re-read, so
// concurrent first starts agree on one secret.
func GetJWTSecret(ctx context.Context, db DBTX) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		"INSERT INTO settings (`key`, value) VALUES ('jwt_secret', ?)",
		candidate,
	)
	if err != nil && !IsUniqueViolation(err) {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE `key` = 'jwt_secret'",
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}
