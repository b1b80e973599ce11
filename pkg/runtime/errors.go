// Package runtime provides the catalog store connection and its error types.
package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the product, order or user does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey wraps unique violations, e.g. a second row for one article.
	ErrDuplicateKey = errors.New("duplicate key value")

	// ErrForeignKeyViolation wraps references to a missing user or order.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	ErrNoConnection = errors.New("no database connection")
)

// ValidationError rejects buyer or operator input before it reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// QueryError keeps the failing SQL next to the translated driver error.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (sql: %s)", e.Err, e.Query)
}

func (e *QueryError) Unwrap() error { return e.Err }

// MigrationError names the schema version that could not be applied.
type MigrationError struct {
	Version string
	Message string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("schema %s: %s: %v", e.Version, e.Message, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err came from a unique or foreign key violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrForeignKeyViolation)
}
