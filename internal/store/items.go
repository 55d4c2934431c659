package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/inventar/internal/model"
)

const itemColumns = `id, product_type_id, serial_number, is_sold, created_at, updated_at`

// serialChunk bounds the number of bound parameters in one IN (...) clause.
const serialChunk = 500

func scanItem(row interface{ Scan(...any) error }, item *model.Item) error {
	return row.Scan(&item.ID, &item.ProductTypeID, &item.SerialNumber, &item.IsSold, &item.CreatedAt, &item.UpdatedAt)
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateItems inserts one unsold item per serial number. It does not touch
// the product type's count; callers run it in the same transaction as
// AdjustProductTypeCount.
func CreateItems(ctx context.Context, db DBTX, productTypeID int64, serialNumbers []string) ([]model.Item, error) {
	ids := make([]any, 0, len(serialNumbers))
	for _, serial := range serialNumbers {
		result, err := db.ExecContext(ctx,
			`INSERT INTO items (product_type_id, serial_number, is_sold) VALUES (?, ?, ?)`,
			productTypeID, serial, false,
		)
		if err != nil {
			return nil, fmt.Errorf("creating item %q: %w", serial, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting item id: %w", err)
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	items := make([]model.Item, 0, len(ids))
	for start := 0; start < len(ids); start += serialChunk {
		end := min(start+serialChunk, len(ids))
		rows, err := db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items WHERE id IN (`+placeholders(end-start)+`) ORDER BY id`,
			ids[start:end]...,
		)
		if err != nil {
			return nil, fmt.Errorf("loading created items: %w", err)
		}
		chunk, err := scanItems(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, chunk...)
	}
	return items, nil
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	item := &model.Item{}
	err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	), item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns the items of a product type, optionally filtered by a
// case-insensitive substring of the serial number.
func ListItems(ctx context.Context, db DBTX, productTypeID int64, search string) ([]model.Item, error) {
	var rows *sql.Rows
	var err error

	if search != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items
			 WHERE product_type_id = ? AND LOWER(serial_number) LIKE ? ORDER BY id`,
			productTypeID, likePattern(search),
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items WHERE product_type_id = ? ORDER BY id`,
			productTypeID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	return scanItems(rows)
}

// ExistingSerialNumbers returns which of the given serial numbers are already
// used by any item, regardless of product type or owner.
func ExistingSerialNumbers(ctx context.Context, db DBTX, serialNumbers []string) ([]string, error) {
	var existing []string
	for start := 0; start < len(serialNumbers); start += serialChunk {
		end := min(start+serialChunk, len(serialNumbers))
		args := make([]any, 0, end-start)
		for _, s := range serialNumbers[start:end] {
			args = append(args, s)
		}

		rows, err := db.QueryContext(ctx,
			`SELECT serial_number FROM items WHERE serial_number IN (`+placeholders(len(args))+`)`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("checking serial numbers: %w", err)
		}

		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning serial number: %w", err)
			}
			existing = append(existing, s)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("checking serial numbers: %w", err)
		}
	}
	return existing, nil
}

// SetItemSold sets an item's sold flag. It reports whether the stored value
// changed; an item that already had the requested value (or does not exist)
// is left untouched.
func SetItemSold(ctx context.Context, db DBTX, id int64, isSold bool) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET is_sold = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_sold <> ?`,
		isSold, id, isSold,
	)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated item: %w", err)
	}
	return n > 0, nil
}

// DeleteUnsoldItem deletes the item only if it is unsold and reports whether
// a row was removed.
func DeleteUnsoldItem(ctx context.Context, db DBTX, id int64) (bool, error) {
	return deleteItem(ctx, db, `DELETE FROM items WHERE id = ? AND is_sold = 0`, id)
}

// DeleteItem deletes the item regardless of its sold flag and reports whether
// a row was removed.
func DeleteItem(ctx context.Context, db DBTX, id int64) (bool, error) {
	return deleteItem(ctx, db, `DELETE FROM items WHERE id = ?`, id)
}

func deleteItem(ctx context.Context, db DBTX, query string, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking deleted item: %w", err)
	}
	return n > 0, nil
}

// CountUnsoldItems returns the number of unsold items of a product type,
// computed from the items table.
func CountUnsoldItems(ctx context.Context, db DBTX, productTypeID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE product_type_id = ? AND is_sold = 0`, productTypeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unsold items: %w", err)
	}
	return count, nil
}
