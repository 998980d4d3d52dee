package repository

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error constants for repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrNotConfigured = RepositoryError("store not configured")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Kind is the backend-independent class of a store failure. Adapters
// translate driver codes into a Kind so callers never inspect driver errors.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindPermissionDenied
	KindMissingColumn
	KindMissingRelation
	KindUniqueViolation
	KindCheckViolation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindMissingColumn:
		return "missing_column"
	case KindMissingRelation:
		return "missing_relation"
	case KindUniqueViolation:
		return "unique_violation"
	case KindCheckViolation:
		return "check_violation"
	default:
		return "other"
	}
}

// Error is a classified store failure.
type Error struct {
	Kind  Kind
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError classifies err. A nil err yields nil.
func NewError(kind Kind, op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Table: table, Err: err}
}

// KindOf reports the Kind of err, or KindOther for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindOther
}
