package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/inventar/internal/model"
)

const productTypeColumns = `id, user_id, name, description, image_path, count, created_at, updated_at`

func scanProductType(row interface{ Scan(...any) error }, pt *model.ProductType) error {
	return row.Scan(&pt.ID, &pt.UserID, &pt.Name, &pt.Description, &pt.ImagePath, &pt.Count, &pt.CreatedAt, &pt.UpdatedAt)
}

// CreateProductType creates a product type owned by userID with a zero count.
func CreateProductType(ctx context.Context, db DBTX, userID int64, name string, description, imagePath *string) (*model.ProductType, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO product_types (user_id, name, description, image_path, count) VALUES (?, ?, ?, ?, 0)`,
		userID, name, description, imagePath,
	)
	if err != nil {
		return nil, fmt.Errorf("creating product type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product type id: %w", err)
	}

	return GetProductType(ctx, db, id)
}

// GetProductType returns a product type by ID, or nil if it does not exist.
func GetProductType(ctx context.Context, db DBTX, id int64) (*model.ProductType, error) {
	pt := &model.ProductType{}
	err := scanProductType(db.QueryRowContext(ctx,
		`SELECT `+productTypeColumns+` FROM product_types WHERE id = ?`, id,
	), pt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product type: %w", err)
	}
	return pt, nil
}

// ListProductTypes returns the product types owned by userID, optionally
// filtered by a case-insensitive substring of the name.
func ListProductTypes(ctx context.Context, db DBTX, userID int64, search string) ([]model.ProductType, error) {
	var rows *sql.Rows
	var err error

	if search != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+productTypeColumns+` FROM product_types
			 WHERE user_id = ? AND LOWER(name) LIKE ? ORDER BY id`, userID, likePattern(search),
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+productTypeColumns+` FROM product_types
			 WHERE user_id = ? ORDER BY id`, userID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing product types: %w", err)
	}
	defer rows.Close()

	var pts []model.ProductType
	for rows.Next() {
		var pt model.ProductType
		if err := scanProductType(rows, &pt); err != nil {
			return nil, fmt.Errorf("scanning product type: %w", err)
		}
		pts = append(pts, pt)
	}
	return pts, rows.Err()
}

// UpdateProductType updates name and description. A nil imagePath keeps the
// current image.
func UpdateProductType(ctx context.Context, db DBTX, id int64, name string, description, imagePath *string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE product_types
		 SET name = ?, description = ?, image_path = COALESCE(?, image_path), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, description, imagePath, id,
	)
	if err != nil {
		return fmt.Errorf("updating product type: %w", err)
	}
	return nil
}

// DeleteProductType deletes a product type and all of its items.
func DeleteProductType(ctx context.Context, db DBTX, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM items WHERE product_type_id = ?`, id); err != nil {
		return fmt.Errorf("deleting product type items: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM product_types WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting product type: %w", err)
	}
	return nil
}

// AdjustProductTypeCount atomically adds delta (which may be negative) to the
// product type's count.
func AdjustProductTypeCount(ctx context.Context, db DBTX, id int64, delta int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE product_types SET count = count + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("adjusting product type count: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking adjusted product type: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("adjusting product type count: product type %d not found", id)
	}
	return nil
}

// RecountProductTypes recomputes every count from the items table and returns
// how many product types had drifted.
func RecountProductTypes(ctx context.Context, db DBTX) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE product_types
		 SET count = (SELECT COUNT(*) FROM items WHERE items.product_type_id = product_types.id AND items.is_sold = 0)
		 WHERE count <> (SELECT COUNT(*) FROM items WHERE items.product_type_id = product_types.id AND items.is_sold = 0)`,
	)
	if err != nil {
		return 0, fmt.Errorf("recounting product types: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking recounted product types: %w", err)
	}
	return n, nil
}
