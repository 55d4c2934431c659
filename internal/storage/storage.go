// Package storage keeps uploaded files (product type images) outside the
// database and resolves their public URLs.
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store saves and removes files addressed by a slash-separated key such as
// "images/product-types/<uuid>.jpg".
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// ProductTypeImagePrefix is the key prefix for product type images.
const ProductTypeImagePrefix = "images/product-types"

// NewKey returns a fresh unique key under prefix with the given extension.
func NewKey(prefix, ext string) string {
	return path.Join(prefix, uuid.NewString()+ext)
}

// joinURL joins a base URL and a key with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
