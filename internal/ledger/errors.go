package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced item, transaction or request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is returned when resolving a request that is no longer pending.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports malformed or missing input. Nothing was written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RowError describes why one bulk import row was rejected. Row is 1-indexed
// and counts the header, so the first data row is row 2.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportError rejects a whole bulk import batch.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	if len(e.Rows) == 1 {
		return fmt.Sprintf("row %d: %s", e.Rows[0].Row, e.Rows[0].Message)
	}
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, fmt.Sprintf("row %d: %s", r.Row, r.Message))
	}
	return fmt.Sprintf("%d invalid rows: %s", len(e.Rows), strings.Join(parts, "; "))
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
