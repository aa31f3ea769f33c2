package db

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection means the backing database could not be reached or a
	// handle could not be obtained.
	ErrConnection = errors.New("database connection failed")
	// ErrSchemaMigration is a non-recoverable schema setup failure.
	ErrSchemaMigration = errors.New("schema migration failed")
	// ErrConstraintViolation is a uniqueness or foreign key failure that the
	// atomic upsert did not absorb.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrInvalidInput rejects arguments outside an operation's domain.
	ErrInvalidInput = errors.New("invalid input")
)

// StoreError attaches the failing operation to one of the sentinel kinds.
type StoreError struct {
	Kind error
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newStoreError(kind error, op string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Err: err}
}
