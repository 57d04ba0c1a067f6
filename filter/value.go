// Package filter implements the typed path/filter algebra that a structural
// query compiles against: a Path names one navigable attribute of a record,
// a Filter combines Paths and literal Parameters into a boolean expression
// tree, and type checking rejects operand/operator mismatches before any SQL
// is emitted.
package filter

import (
	"encoding/json"
	"fmt"

	"graphstore.dev/identifier"
)

// ValueType is the expected type a Path or Parameter carries. Operator
// applicability and operand compatibility are both decided in terms of
// ValueType, never by inspecting the runtime Go type of a Value.
type ValueType int

const (
	TypeUuid ValueType = iota
	TypeTimestamp
	TypeBaseUrl
	TypeVersionedUrl
	TypeNumber
	TypeText
	TypeBool
	TypeJson
	// TypeAny matches any ValueType; used by paths whose terminal can hold
	// heterogeneous values (e.g. a raw property value) so that type
	// checking defers the decision to runtime/schema validation.
	TypeAny
)

func (t ValueType) String() string {
	switch t {
	case TypeUuid:
		return "uuid"
	case TypeTimestamp:
		return "timestamp"
	case TypeBaseUrl:
		return "base_url"
	case TypeVersionedUrl:
		return "versioned_url"
	case TypeNumber:
		return "number"
	case TypeText:
		return "text"
	case TypeBool:
		return "bool"
	case TypeJson:
		return "json"
	case TypeAny:
		return "any"
	default:
		return "unknown_value_type"
	}
}

// compatible reports whether a value of type other may be compared against a
// Path whose expected type is t. TypeAny is compatible with everything in
// either direction; otherwise the types must match exactly.
func (t ValueType) compatible(other ValueType) bool {
	return t == TypeAny || other == TypeAny || t == other
}

// Value is a literal operand (a Parameter in the algebra): exactly one field
// is populated, selected by Type.
type Value struct {
	Type ValueType

	Uuid         string
	Timestamp    string
	BaseUrl      identifier.BaseUrl
	VersionedUrl identifier.VersionedUrl
	Number       float64
	Text         string
	Bool         bool
	Json         json.RawMessage
}

func TextValue(s string) Value  { return Value{Type: TypeText, Text: s} }
func NumberValue(n float64) Value { return Value{Type: TypeNumber, Number: n} }
func BoolValue(b bool) Value    { return Value{Type: TypeBool, Bool: b} }

func (v Value) String() string {
	switch v.Type {
	case TypeUuid:
		return v.Uuid
	case TypeTimestamp:
		return v.Timestamp
	case TypeBaseUrl:
		return v.BaseUrl.String()
	case TypeVersionedUrl:
		return v.VersionedUrl.String()
	case TypeNumber:
		return fmt.Sprintf("%v", v.Number)
	case TypeText:
		return v.Text
	case TypeBool:
		return fmt.Sprintf("%v", v.Bool)
	default:
		return string(v.Json)
	}
}
