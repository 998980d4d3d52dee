package service

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/khabaznak/gym-tracker/internal/repository"
)

// --- Error Definitions ---
var (
	ErrNotFound             = errors.New("not found")
	ErrStoreNotConfigured   = errors.New("Database is not configured.")
	ErrStorageNotConfigured = errors.New("Video storage is not configured.")
)

// ValidationError carries a client-facing reason. It is never logged as a
// server fault.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that an id did not resolve to a row.
// errors.Is(err, ErrNotFound) holds for every NotFoundError.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(entity string) error { return &NotFoundError{Entity: entity} }

// PermissionDeniedError is a write rejected by the store's access policy.
// Message tells the operator how to grant access.
type PermissionDeniedError struct {
	Message string
	Err     error
}

func (e *PermissionDeniedError) Error() string { return e.Message }

func (e *PermissionDeniedError) Unwrap() error { return e.Err }

// SchemaMismatchError is a read against a table or column that does not exist.
type SchemaMismatchError struct {
	Message string
	Err     error
}

func (e *SchemaMismatchError) Error() string { return e.Message }

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// StoreError is any other store failure. Message is an opaque
// "Unable to ..." sentence safe to show to clients.
type StoreError struct {
	Message string
	Err     error
}

func (e *StoreError) Error() string { return e.Message }

func (e *StoreError) Unwrap() error { return e.Err }

// storeError classifies err from a failed write or read performed to
// carry out action (e.g. "create plan").
func storeError(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotConfigured) {
		return ErrStoreNotConfigured
	}

	var repoErr *repository.Error
	table := "the affected tables"
	if errors.As(err, &repoErr) && repoErr.Table != "" {
		table = repoErr.Table
	}

	switch repository.KindOf(err) {
	case repository.KindPermissionDenied:
		return &PermissionDeniedError{
			Message: fmt.Sprintf("The database blocked the request to %s due to row-level security. Grant insert, update and delete policies on %s (or connect with a service role) and try again.", action, table),
			Err:     err,
		}
	case repository.KindNotFound:
		return ErrNotFound
	default:
		return &StoreError{Message: "Unable to " + action, Err: err}
	}
}

// readError is storeError for list reads, where a missing table is reported
// as a schema mismatch.
func readError(err error, action string) error {
	if repository.KindOf(err) == repository.KindMissingRelation {
		return &SchemaMismatchError{
			Message: fmt.Sprintf("Unable to %s: the database schema is missing a required table. Apply the latest schema and try again.", action),
			Err:     err,
		}
	}
	return storeError(err, action)
}
