package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/inventory"
)

// maxFormSize bounds a product type request body. Images over
// imaging.MaxInputSize but under this limit get a field error instead of 413.
const maxFormSize = 8 << 20

// ProductTypesHandler handles product type endpoints.
type ProductTypesHandler struct {
	Service *inventory.Service
}

// List handles GET /api/product-types.
func (h *ProductTypesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	pts, err := h.Service.ListProductTypes(r.Context(), claims.UserID, r.URL.Query().Get("search"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusOK, "", pts)
}

// Create handles POST /api/product-types.
func (h *ProductTypesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	form, err := readProductTypeForm(w, r)
	if err != nil {
		bodyError(w, err)
		return
	}
	defer form.close()

	pt, err := h.Service.CreateProductType(r.Context(), claims.UserID, form.input)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusCreated, "Product type created successfully", pt)
}

// Get handles GET /api/product-types/{id}.
func (h *ProductTypesHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	pt, err := h.Service.GetProductType(r.Context(), claims.UserID, id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusOK, "", pt)
}

// Update handles PUT /api/product-types/{id}.
func (h *ProductTypesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	form, err := readProductTypeForm(w, r)
	if err != nil {
		bodyError(w, err)
		return
	}
	defer form.close()

	h.update(w, r, id, form.input)
}

// Override handles POST /api/product-types/{id} carrying a _method field.
// Browsers send multipart edits this way since multipart PUT bodies are not
// parsed by every backend.
func (h *ProductTypesHandler) Override(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	form, err := readProductTypeForm(w, r)
	if err != nil {
		bodyError(w, err)
		return
	}
	defer form.close()

	switch strings.ToUpper(strings.TrimSpace(form.method)) {
	case http.MethodPut, http.MethodPatch:
		h.update(w, r, id, form.input)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *ProductTypesHandler) update(w http.ResponseWriter, r *http.Request, id int64, in inventory.ProductTypeInput) {
	claims := GetClaims(r.Context())

	pt, err := h.Service.UpdateProductType(r.Context(), claims.UserID, id, in)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusOK, "Product type updated successfully", pt)
}

// Delete handles DELETE /api/product-types/{id}.
func (h *ProductTypesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteProductType(r.Context(), claims.UserID, id); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonSuccess(w, http.StatusOK, "Product type deleted successfully", nil)
}

type productTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Method      string `json:"_method"`
}

// productTypeForm is a decoded product type request body.
type productTypeForm struct {
	input  inventory.ProductTypeInput
	method string
	file   io.Closer
}

// close releases the uploaded file, if any.
func (f *productTypeForm) close() {
	if f.file != nil {
		f.file.Close()
	}
}

// readProductTypeForm reads name, description, _method and an optional image
// from a multipart, urlencoded or JSON body.
func readProductTypeForm(w http.ResponseWriter, r *http.Request) (*productTypeForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req productTypeRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
		return &productTypeForm{
			input:  inventory.ProductTypeInput{Name: req.Name, Description: req.Description},
			method: req.Method,
		}, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(imaging.MaxInputSize); err != nil {
			return nil, err
		}
		form := &productTypeForm{
			input: inventory.ProductTypeInput{
				Name:        r.FormValue("name"),
				Description: r.FormValue("description"),
			},
			method: r.FormValue("_method"),
		}
		file, _, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return form, nil
		case err != nil:
			return nil, err
		}
		form.input.Image = file
		form.file = file
		return form, nil

	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return &productTypeForm{
			input: inventory.ProductTypeInput{
				Name:        r.PostFormValue("name"),
				Description: r.PostFormValue("description"),
			},
			method: r.PostFormValue("_method"),
		}, nil
	}
}

// pathID parses the {id} path value. Unparseable IDs cannot match a row and
// are reported as not found.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusNotFound, "Resource not found")
		return 0, false
	}
	return id, true
}
