package model

import "time"

// ProductType is a user-owned category of inventory. Count is the number of
// its items that are not sold.
type ProductType struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ImagePath   *string   `json:"image_path"`
	ImageURL    *string   `json:"image_url"`
	Count       int       `json:"count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnedBy reports whether the product type belongs to the given user.
func (pt *ProductType) OwnedBy(userID int64) bool {
	return pt.UserID == userID
}

// Item is a serialized unit of a product type.
type Item struct {
	ID            int64     `json:"id"`
	ProductTypeID int64     `json:"product_type_id"`
	SerialNumber  string    `json:"serial_number"`
	IsSold        bool      `json:"is_sold"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
