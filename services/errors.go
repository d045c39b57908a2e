package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories the boundary layer
// maps to HTTP statuses. Handlers match on the kind, never on message
// strings.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindForbidden  ErrorKind = "forbidden"
	KindValidation ErrorKind = "validation"
)

// Error is a tagged service error carrying structured context: the
// entity kind it concerns, its id when known, and a human-readable
// reason.
type Error struct {
	Kind   ErrorKind
	Entity string
	ID     int
	Reason string
}

func (e *Error) Error() string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.ID != 0:
		return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Kind)
	default:
		return fmt.Sprintf("%s: %s", e.Entity, e.Kind)
	}
}

func NotFound(entity string, id int) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Reason: entity + " not found"}
}

func Conflict(entity, reason string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, Reason: reason}
}

func Forbidden(reason string) *Error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// KindOf extracts the kind of a service error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

func IsNotFound(err error) bool  { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool  { return KindOf(err) == KindConflict }
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }
