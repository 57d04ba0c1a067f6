// Package query compiles a StructuralQuery — a typed Filter plus temporal
// axes, sorting, and pagination — into parameterized SQL. Compilation never
// touches the database: it only needs the column/table metadata a Filter's
// Paths resolve to, so the same StructuralQuery always yields identical SQL
// and parameter order.
package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"graphstore.dev/filter"
	"graphstore.dev/temporal"
)

// Ordering is the direction a sort column is applied in.
type Ordering int

const (
	Ascending Ordering = iota
	Descending
)

// SortKey is one column of a StructuralQuery's ORDER BY / cursor tuple.
type SortKey struct {
	Path    filter.Path
	Order   Ordering
}

// GraphResolveDepths bounds how far a subgraph resolution may traverse from
// each root vertex returned by a StructuralQuery, one depth per edge kind.
// A zero value traverses no edges (root vertices only).
type GraphResolveDepths struct {
	IsOfType         uint8
	ConstrainsLinksOn uint8
	InheritsFrom     uint8
	HasLeftEntity    uint8
	HasRightEntity   uint8
}

// IsZero reports whether every depth is zero, i.e. the query wants root
// vertices only.
func (d GraphResolveDepths) IsZero() bool {
	return d == GraphResolveDepths{}
}

// Cursor is an opaque tuple of the last page's sort key values, compared
// lexicographically against the live sort key tuple to resume pagination.
type Cursor struct {
	Values []filter.Value
}

// Encode renders a Cursor as the opaque string returned to callers between
// pages.
func (c Cursor) Encode() (string, error) {
	raw, err := json.Marshal(c.Values)
	if err != nil {
		return "", fmt.Errorf("query: encoding cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses a cursor string previously returned by Encode. A
// malformed cursor yields ErrCursorDecode rather than a generic error, so
// callers can distinguish "bad input" from other compilation failures.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, &Error{Kind: ErrCursorDecode, Message: err.Error()}
	}
	var values []filter.Value
	if err := json.Unmarshal(raw, &values); err != nil {
		return Cursor{}, &Error{Kind: ErrCursorDecode, Message: err.Error()}
	}
	for i := range values {
		if values[i].Type != filter.TypeJson && string(values[i].Json) == "null" {
			values[i].Json = nil
		}
	}
	return Cursor{Values: values}, nil
}

// StructuralQuery is the full description of one page of results: a filter,
// the bitemporal window to read through, the sort/pagination state, and how
// far to expand the returned roots into a subgraph. Record names a record
// kind, but Compile reads entity records (the entities relation) whatever
// Record holds.
type StructuralQuery struct {
	Record       filter.RecordKind
	Filter       filter.Filter
	Temporal     temporal.QueryTemporalAxes
	Sorting      []SortKey
	Cursor       *Cursor
	Limit        int
	ResolveDepths GraphResolveDepths
	IncludeDrafts bool
}
