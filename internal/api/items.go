package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/inventar/internal/inventory"
)

// maxJSONSize bounds JSON request bodies.
const maxJSONSize = 1 << 20

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Service *inventory.Service
}

type createItemsRequest struct {
	ProductTypeID any `json:"product_type_id"`
	SerialNumbers any `json:"serial_numbers"`
}

type updateItemRequest struct {
	IsSold        any `json:"is_sold"`
	ProductTypeID any `json:"product_type_id"`
}

// List handles GET /api/items?product_type_id=&search=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	q := r.URL.Query()

	ptID, err := strconv.ParseInt(q.Get("product_type_id"), 10, 64)
	if err != nil || ptID <= 0 {
		jsonError(w, http.StatusNotFound, "Resource not found")
		return
	}

	items, err := h.Service.ListItems(r.Context(), claims.UserID, ptID, q.Get("search"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusOK, "", items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createItemsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	if err := decodeJSON(r, &req); err != nil {
		bodyError(w, err)
		return
	}

	items, err := h.Service.CreateItems(r.Context(), claims.UserID, inventory.ItemBatch{
		ProductTypeID: req.ProductTypeID,
		SerialNumbers: req.SerialNumbers,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusCreated, "Items created successfully", items)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	if err := decodeJSON(r, &req); err != nil {
		bodyError(w, err)
		return
	}

	item, err := h.Service.UpdateItemSold(r.Context(), claims.UserID, id, inventory.ItemUpdate{
		IsSold:        req.IsSold,
		ProductTypeID: req.ProductTypeID,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusOK, "Item updated successfully", item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteItem(r.Context(), claims.UserID, id); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusOK, "Item deleted successfully", nil)
}
