package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventar/internal/inventory"
)

// envelope is the body of every JSON response.
type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonSuccess writes a success envelope.
func jsonSuccess(w http.ResponseWriter, status int, message string, data any) {
	jsonResponse(w, status, envelope{Status: "success", Message: message, Data: data})
}

// jsonError writes an error envelope.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, envelope{Status: "error", Message: message})
}

// jsonValidation writes a 422 error envelope with field messages.
func jsonValidation(w http.ResponseWriter, fields map[string][]string) {
	jsonResponse(w, http.StatusUnprocessableEntity, envelope{
		Status:  "error",
		Message: "The given data was invalid.",
		Errors:  fields,
	})
}

// serviceError maps an inventory error onto a response.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := inventory.IsValidation(err); ok {
		jsonValidation(w, verr.Fields)
		return
	}

	switch {
	case errors.Is(err, inventory.ErrNotFound):
		jsonError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, inventory.ErrForbidden):
		jsonError(w, http.StatusForbidden, "Unauthorized")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON decodes a JSON request body into the given target. An empty
// body leaves target untouched.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// bodyError writes the response for a body that could not be read.
func bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	jsonError(w, http.StatusBadRequest, "Invalid request body")
}
