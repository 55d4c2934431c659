package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced product type or item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the product type.
	ErrForbidden = errors.New("unauthorized")

	errProductTypeNotFound = fmt.Errorf("product type %w", ErrNotFound)
	errItemNotFound        = fmt.Errorf("item %w", ErrNotFound)
)

// ValidationError carries field-level messages for a rejected payload.
type ValidationError struct {
	Fields map[string][]string
}

// Add records a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// err returns e if any message was recorded, nil otherwise.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}
