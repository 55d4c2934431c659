package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ItemBatch is the payload for creating items. Fields hold decoded JSON
// values and are checked after the ownership check.
type ItemBatch struct {
	ProductTypeID any
	SerialNumbers any
}

// ItemUpdate is the payload for changing an item's sold flag.
type ItemUpdate struct {
	IsSold        any
	ProductTypeID any
}

// ListItems returns the items of a product type owned by userID.
func (s *Service) ListItems(ctx context.Context, userID, productTypeID int64, search string) ([]model.Item, error) {
	if _, err := ownedProductType(ctx, s.DB, userID, productTypeID); err != nil {
		return nil, err
	}

	items, err := store.ListItems(ctx, s.DB, productTypeID, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// CreateItems adds one unsold item per serial number and raises the product
// type's count by the same amount. Either every item is created or none is.
func (s *Service) CreateItems(ctx context.Context, userID int64, in ItemBatch) ([]model.Item, error) {
	ptID, ok := asID(in.ProductTypeID)
	if !ok {
		return nil, errProductTypeNotFound
	}

	var items []model.Item
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := ownedProductType(ctx, tx, userID, ptID); err != nil {
			return err
		}

		serials, err := validateSerialNumbers(ctx, tx, in.SerialNumbers)
		if err != nil {
			return err
		}

		items, err = store.CreateItems(ctx, tx, ptID, serials)
		if err != nil {
			if store.IsUniqueViolation(err) {
				verr := &ValidationError{}
				verr.Add("serial_numbers", "The serial numbers has already been taken.")
				return verr
			}
			return err
		}

		return store.AdjustProductTypeCount(ctx, tx, ptID, len(items))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("items created", "product_type", ptID, "user", userID, "count", len(items))
	return items, nil
}

// UpdateItemSold sets an item's sold flag. The product type's count moves by
// one only when the stored flag actually changes.
func (s *Service) UpdateItemSold(ctx context.Context, userID, itemID int64, in ItemUpdate) (*model.Item, error) {
	var item *model.Item
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		current, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if current == nil {
			return errItemNotFound
		}
		if _, err := ownedProductType(ctx, tx, userID, current.ProductTypeID); err != nil {
			return err
		}

		isSold, err := validateItemUpdate(ctx, tx, in)
		if err != nil {
			return err
		}

		changed, err := store.SetItemSold(ctx, tx, itemID, isSold)
		if err != nil {
			return err
		}
		if changed {
			delta := 1
			if isSold {
				delta = -1
			}
			if err := store.AdjustProductTypeCount(ctx, tx, current.ProductTypeID, delta); err != nil {
				return err
			}
		}

		item, err = store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return errItemNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("item updated", "id", itemID, "user", userID, "sold", item.IsSold)
	return item, nil
}

// DeleteItem removes an item. Deleting an unsold item lowers the product
// type's count; deleting a sold one leaves it unchanged.
func (s *Service) DeleteItem(ctx context.Context, userID, itemID int64) error {
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return errItemNotFound
		}
		if _, err := ownedProductType(ctx, tx, userID, item.ProductTypeID); err != nil {
			return err
		}

		removed, err := store.DeleteUnsoldItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if removed {
			return store.AdjustProductTypeCount(ctx, tx, item.ProductTypeID, -1)
		}

		_, err = store.DeleteItem(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("item deleted", "id", itemID, "user", userID)
	return nil
}

// validateSerialNumbers checks the submitted list and returns it as strings.
func validateSerialNumbers(ctx context.Context, db store.DBTX, v any) ([]string, error) {
	verr := &ValidationError{}

	list, ok := asList(v)
	switch {
	case v == nil || (ok && len(list) == 0):
		verr.Add("serial_numbers", "The serial numbers field is required.")
		return nil, verr
	case !ok:
		verr.Add("serial_numbers", "The serial numbers field must be an array.")
		return nil, verr
	}

	serials := make([]string, 0, len(list))
	seen := make(map[string]int, len(list))
	index := make(map[string]int, len(list))
	for i, entry := range list {
		field := fmt.Sprintf("serial_numbers.%d", i)
		s, ok := entry.(string)
		if !ok {
			verr.Add(field, fmt.Sprintf("The %s field must be a string.", field))
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			verr.Add(field, fmt.Sprintf("The %s field is required.", field))
			continue
		}
		seen[s]++
		if _, dup := index[s]; !dup {
			index[s] = i
		}
		serials = append(serials, s)
	}

	for i, entry := range list {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		if seen[strings.TrimSpace(s)] > 1 {
			field := fmt.Sprintf("serial_numbers.%d", i)
			verr.Add(field, fmt.Sprintf("The %s field has a duplicate value.", field))
		}
	}

	if err := verr.err(); err != nil {
		return nil, err
	}

	existing, err := store.ExistingSerialNumbers(ctx, db, serials)
	if err != nil {
		return nil, err
	}
	for _, s := range existing {
		field := fmt.Sprintf("serial_numbers.%d", index[s])
		verr.Add(field, fmt.Sprintf("The %s has already been taken.", field))
	}

	if err := verr.err(); err != nil {
		return nil, err
	}
	return serials, nil
}

// validateItemUpdate checks an item update and returns the requested flag.
func validateItemUpdate(ctx context.Context, db store.DBTX, in ItemUpdate) (bool, error) {
	verr := &ValidationError{}

	isSold, ok := asBool(in.IsSold)
	switch {
	case in.IsSold == nil:
		verr.Add("is_sold", "The is sold field is required.")
	case !ok:
		verr.Add("is_sold", "The is sold field must be true or false.")
	}

	if in.ProductTypeID == nil {
		verr.Add("product_type_id", "The product type id field is required.")
	} else if id, ok := asID(in.ProductTypeID); !ok {
		verr.Add("product_type_id", "The selected product type id is invalid.")
	} else {
		pt, err := store.GetProductType(ctx, db, id)
		if err != nil {
			return false, err
		}
		if pt == nil {
			verr.Add("product_type_id", "The selected product type id is invalid.")
		}
	}

	if err := verr.err(); err != nil {
		return false, err
	}
	return isSold, nil
}
