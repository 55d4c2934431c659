// Package inventory applies the ownership rules and keeps each product
// type's count equal to the number of its unsold items.
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/storage"
	"github.com/erazemk/inventar/internal/store"
)

// Service performs product type and item operations on behalf of a user.
// Every write checks existence, then ownership, then the payload, and only
// then mutates.
type Service struct {
	DB    *sql.DB
	Files storage.Store
}

// NewService returns a Service backed by db and files.
func NewService(db *sql.DB, files storage.Store) *Service {
	return &Service{DB: db, Files: files}
}

// ownedProductType loads a product type and checks that userID owns it.
func ownedProductType(ctx context.Context, db store.DBTX, userID, id int64) (*model.ProductType, error) {
	pt, err := store.GetProductType(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, errProductTypeNotFound
	}
	if !pt.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return pt, nil
}

// decorate fills the public image URL.
func (s *Service) decorate(pt *model.ProductType) {
	pt.ImageURL = nil
	if pt.ImagePath != nil && s.Files != nil {
		u := s.Files.URL(*pt.ImagePath)
		pt.ImageURL = &u
	}
}

// removeFile deletes a stored file, logging instead of failing.
func (s *Service) removeFile(ctx context.Context, key string) {
	if s.Files == nil || key == "" {
		return
	}
	if err := s.Files.Delete(ctx, key); err != nil {
		slog.Warn("failed to remove stored file", "key", key, "error", err)
	}
}

// Recount recomputes every product type's count from its items and returns
// the number of product types that were corrected.
func (s *Service) Recount(ctx context.Context) (int64, error) {
	n, err := store.RecountProductTypes(ctx, s.DB)
	if err != nil {
		return 0, fmt.Errorf("recounting: %w", err)
	}
	if n > 0 {
		slog.Warn("product type counts repaired", "count", n)
	}
	return n, nil
}
