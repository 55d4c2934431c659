package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/storage"
	"github.com/erazemk/inventar/internal/store"
)

// MaxNameLength is the maximum product type name length in characters.
const MaxNameLength = 255

// ProductTypeInput is the payload for creating or updating a product type.
// Image is nil when no file was uploaded.
type ProductTypeInput struct {
	Name        string
	Description string
	Image       io.Reader
}

// ListProductTypes returns the user's product types, optionally filtered by name.
func (s *Service) ListProductTypes(ctx context.Context, userID int64, search string) ([]model.ProductType, error) {
	pts, err := store.ListProductTypes(ctx, s.DB, userID, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	if pts == nil {
		pts = []model.ProductType{}
	}
	for i := range pts {
		s.decorate(&pts[i])
	}
	return pts, nil
}

// GetProductType returns a product type owned by userID.
func (s *Service) GetProductType(ctx context.Context, userID, id int64) (*model.ProductType, error) {
	pt, err := ownedProductType(ctx, s.DB, userID, id)
	if err != nil {
		return nil, err
	}
	s.decorate(pt)
	return pt, nil
}

// CreateProductType creates a product type with a zero count.
func (s *Service) CreateProductType(ctx context.Context, userID int64, in ProductTypeInput) (*model.ProductType, error) {
	image, err := validateProductType(in)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.storeImage(ctx, image)
	if err != nil {
		return nil, err
	}

	pt, err := store.CreateProductType(ctx, s.DB, userID, strings.TrimSpace(in.Name), optional(in.Description), imagePath)
	if err != nil {
		if imagePath != nil {
			s.removeFile(ctx, *imagePath)
		}
		return nil, err
	}

	slog.Info("product type created", "id", pt.ID, "user", userID, "name", pt.Name)
	s.decorate(pt)
	return pt, nil
}

// UpdateProductType replaces the name and description. The image is replaced
// only when a new one is uploaded; the previous file is removed afterwards.
func (s *Service) UpdateProductType(ctx context.Context, userID, id int64, in ProductTypeInput) (*model.ProductType, error) {
	existing, err := ownedProductType(ctx, s.DB, userID, id)
	if err != nil {
		return nil, err
	}

	image, err := validateProductType(in)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.storeImage(ctx, image)
	if err != nil {
		return nil, err
	}

	var pt *model.ProductType
	err = store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := store.UpdateProductType(ctx, tx, id, strings.TrimSpace(in.Name), optional(in.Description), imagePath); err != nil {
			return err
		}
		pt, err = store.GetProductType(ctx, tx, id)
		if err != nil {
			return err
		}
		if pt == nil {
			return errProductTypeNotFound
		}
		return nil
	})
	if err != nil {
		if imagePath != nil {
			s.removeFile(ctx, *imagePath)
		}
		return nil, err
	}

	if imagePath != nil && existing.ImagePath != nil && *existing.ImagePath != *imagePath {
		s.removeFile(ctx, *existing.ImagePath)
	}

	slog.Info("product type updated", "id", id, "user", userID)
	s.decorate(pt)
	return pt, nil
}

// DeleteProductType deletes a product type, its items and its stored image.
func (s *Service) DeleteProductType(ctx context.Context, userID, id int64) error {
	pt, err := ownedProductType(ctx, s.DB, userID, id)
	if err != nil {
		return err
	}

	err = store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return store.DeleteProductType(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	if pt.ImagePath != nil {
		s.removeFile(ctx, *pt.ImagePath)
	}

	slog.Info("product type deleted", "id", id, "user", userID)
	return nil
}

// validateProductType checks the payload and returns the processed image,
// or nil when none was uploaded.
func validateProductType(in ProductTypeInput) (*imaging.ProcessResult, error) {
	verr := &ValidationError{}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		verr.Add("name", "The name field is required.")
	case utf8.RuneCountInString(name) > MaxNameLength:
		verr.Add("name", fmt.Sprintf("The name field must not be greater than %d characters.", MaxNameLength))
	}

	var image *imaging.ProcessResult
	if in.Image != nil {
		var err error
		image, err = imaging.Process(in.Image)
		switch {
		case errors.Is(err, imaging.ErrTooLarge):
			verr.Add("image", fmt.Sprintf("The image field must not be greater than %d kilobytes.", imaging.MaxInputSize>>10))
		case errors.Is(err, imaging.ErrUnsupportedFormat):
			verr.Add("image", "The image field must be an image.")
			verr.Add("image", "The image field must be a file of type: jpeg, png, jpg, gif.")
		case err != nil:
			return nil, err
		}
	}

	if err := verr.err(); err != nil {
		return nil, err
	}
	return image, nil
}

// storeImage saves a processed image and returns its key.
func (s *Service) storeImage(ctx context.Context, image *imaging.ProcessResult) (*string, error) {
	if image == nil {
		return nil, nil
	}
	if s.Files == nil {
		return nil, errors.New("storing image: no file store configured")
	}

	key := storage.NewKey(storage.ProductTypeImagePrefix, imaging.Extension)
	if err := s.Files.Put(ctx, key, image.Data, image.MIME); err != nil {
		return nil, fmt.Errorf("storing image: %w", err)
	}
	return &key, nil
}

// optional returns nil for a blank string.
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
