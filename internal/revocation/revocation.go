// Package revocation tracks logged-out token IDs until the tokens expire.
package revocation

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/inventar/internal/store"
)

// List records revoked token IDs.
type List interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SQL keeps revocations in the revoked_tokens table.
type SQL struct {
	DB *sql.DB
}

// Revoke records jti as revoked until expiresAt.
func (s *SQL) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	return store.RevokeToken(ctx, s.DB, jti, expiresAt)
}

// IsRevoked reports whether jti has been revoked.
func (s *SQL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return store.IsTokenRevoked(ctx, s.DB, jti)
}

const keyPrefix = "revoked:"

// Redis keeps revocations as keys that expire together with the token.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed revocation list.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Revoke stores jti with a TTL that ends when the token expires. Tokens that
// have already expired are not stored.
func (r *Redis) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.SetNX(ctx, keyPrefix+jti, 1, ttl).Err()
}

// IsRevoked reports whether a key for jti exists.
func (r *Redis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
