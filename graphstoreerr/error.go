// Package graphstoreerr is the typed error shape every component surfaces
// across store, query, subgraph, snapshot, and principal operations. A
// single closed Kind enumerates failure categories, while Op/Resource carry
// the structured context callers need without parsing a message string.
package graphstoreerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the category of failure. Callers branch on Kind, never
// on the formatted message.
type Kind int

const (
	Internal Kind = iota
	NotFoundKind
	AlreadyExists
	Conflict
	InvalidInput
	PermissionDenied
	FilterValidation
	PathUnknown
	TypeMismatch
	CursorDecode
	EitherMode
	TemporalConflict
	ValidationFailed
	DeadlineExceeded
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case NotFoundKind:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	case Conflict:
		return "conflict"
	case InvalidInput:
		return "invalid_input"
	case PermissionDenied:
		return "permission_denied"
	case FilterValidation:
		return "filter_validation"
	case PathUnknown:
		return "path_unknown"
	case TypeMismatch:
		return "type_mismatch"
	case CursorDecode:
		return "cursor_decode_error"
	case EitherMode:
		return "either_mode"
	case TemporalConflict:
		return "temporal_conflict"
	case ValidationFailed:
		return "validation_failed"
	case DeadlineExceeded:
		return "deadline_exceeded"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Diagnostic is one entry in a ValidationFailed error's sub-diagnostic list,
// addressed by a path string rather than a flat message so callers can point
// a user at the offending field.
type Diagnostic struct {
	Path    string
	Code    string
	Message string
}

// Error is the error type returned by every operation in this module. Op
// names the operation that failed (e.g. "store.CreateEntity"), Resource
// identifies what it operated on (e.g. an EntityId's string form), and Err
// carries the underlying cause when there is one.
type Error struct {
	Kind        Kind
	Op          string
	Resource    string
	Err         error
	Diagnostics []Diagnostic
}

func (e *Error) Error() string {
	switch {
	case len(e.Diagnostics) > 0:
		return fmt.Sprintf("%s: %s %q: %d diagnostic(s), first %s: %s", e.Op, e.Kind, e.Resource, len(e.Diagnostics), e.Diagnostics[0].Code, e.Diagnostics[0].Message)
	case e.Err != nil && e.Resource != "":
		return fmt.Sprintf("%s: %s %q: %v", e.Op, e.Kind, e.Resource, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Resource != "":
		return fmt.Sprintf("%s: %s %q", e.Op, e.Kind, e.Resource)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound constructs a NotFoundKind error for resource, attributed to op.
func NotFound(op, resource string) *Error {
	return &Error{Kind: NotFoundKind, Op: op, Resource: resource}
}

// Exists constructs an AlreadyExists error for resource.
func Exists(op, resource string) *Error {
	return &Error{Kind: AlreadyExists, Op: op, Resource: resource}
}

// Invalid constructs an InvalidInput error wrapping the precondition
// violation described by err.
func Invalid(op string, err error) *Error {
	return &Error{Kind: InvalidInput, Op: op, Err: err}
}

// Wrap constructs an Internal error wrapping an unexpected lower-layer
// failure (a database error, a serialization error).
func Wrap(op string, err error) *Error {
	return &Error{Kind: Internal, Op: op, Err: err}
}

// Denied constructs a PermissionDenied error for the actor/resource pair
// described by resource.
func Denied(op, resource string) *Error {
	return &Error{Kind: PermissionDenied, Op: op, Resource: resource}
}

// Either constructs an EitherMode error: a request supplied zero or both of
// a pair of mutually exclusive fields (graphResolveDepths/traversalPaths, a
// filter/a query) where exactly one was required.
func Either(op string) *Error {
	return &Error{Kind: EitherMode, Op: op}
}

// Temporal constructs a TemporalConflict error: a write whose interval
// overlaps an interval already committed for resource.
func Temporal(op, resource string) *Error {
	return &Error{Kind: TemporalConflict, Op: op, Resource: resource}
}

// Invalidated constructs a ValidationFailed error carrying the full list of
// sub-diagnostics a schema or referential check produced.
func Invalidated(op, resource string, diagnostics []Diagnostic) *Error {
	return &Error{Kind: ValidationFailed, Op: op, Resource: resource, Diagnostics: diagnostics}
}

// Unreachable constructs an Unavailable error for a transient backend
// failure, the kind bounded retry-with-backoff policies act on.
func Unreachable(op string, err error) *Error {
	return &Error{Kind: Unavailable, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) is a graphstoreerr.Error of
// the given Kind, the pattern store/subgraph/facade callers use to branch on
// failure category without a type assertion at every call site.
func Is(err error, kind Kind) bool {
	for err != nil {
		if gerr, ok := err.(*Error); ok && gerr.Kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
