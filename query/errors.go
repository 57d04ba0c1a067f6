package query

import (
	"fmt"

	"graphstore.dev/filter"
)

// ErrorKind discriminates the compiler's failure modes.
type ErrorKind int

const (
	ErrFilterValidation ErrorKind = iota
	ErrPathUnknown
	ErrTypeMismatch
	ErrCursorDecode
)

func (k ErrorKind) String() string {
	switch k {
	case ErrFilterValidation:
		return "filter_validation"
	case ErrPathUnknown:
		return "path_unknown"
	case ErrTypeMismatch:
		return "type_mismatch"
	case ErrCursorDecode:
		return "cursor_decode_error"
	default:
		return "unknown_query_error"
	}
}

// Error is the typed failure Compile returns. No panics are raised for
// untrusted input; every rejection surfaces through this type.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("query: %s: %s", e.Kind, e.Message)
}

// wrapFilterError adapts a *filter.Error into this package's own Error kind
// space, so Compile's callers only ever handle one error type.
func wrapFilterError(err *filter.Error) *Error {
	kind := ErrFilterValidation
	switch err.Kind {
	case filter.ErrPathUnknown:
		kind = ErrPathUnknown
	case filter.ErrTypeMismatch:
		kind = ErrTypeMismatch
	}
	return &Error{Kind: kind, Message: err.Message}
}
