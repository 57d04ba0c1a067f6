package filter

import "fmt"

// Kind discriminates the shape of a Filter node: a boolean combinator
// (All/Any/Not) or a leaf comparison operator.
type Kind int

const (
	KindAll Kind = iota
	KindAny
	KindNot
	KindEqual
	KindNotEqual
	KindLess
	KindLessOrEqual
	KindGreater
	KindGreaterOrEqual
	KindStartsWith
	KindEndsWith
	KindContainsSegment
	KindIn
)

func (k Kind) String() string {
	names := [...]string{
		"All", "Any", "Not", "Equal", "NotEqual", "Less", "LessOrEqual",
		"Greater", "GreaterOrEqual", "StartsWith", "EndsWith", "ContainsSegment", "In",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Operand is one side of a leaf comparison: exactly one of Path or
// Parameter is set.
type Operand struct {
	Path      *Path
	Parameter *Value
}

func PathOperand(p Path) Operand           { return Operand{Path: &p} }
func ParameterOperand(v Value) Operand     { return Operand{Parameter: &v} }

// ExpectedType returns the ValueType this operand must satisfy.
func (o Operand) ExpectedType() ValueType {
	switch {
	case o.Path != nil:
		return o.Path.ExpectedType()
	case o.Parameter != nil:
		return o.Parameter.Type
	default:
		return TypeAny
	}
}

func (o Operand) String() string {
	switch {
	case o.Path != nil:
		return o.Path.Kind.token()
	case o.Parameter != nil:
		return o.Parameter.String()
	default:
		return "<empty operand>"
	}
}

// Filter is the boolean expression tree a structural query evaluates. Only
// the fields relevant to Kind are populated: Children for All/Any, Inner for
// Not, Lhs/Rhs for binary comparisons, List for In (Lhs is compared against
// every element).
type Filter struct {
	Kind Kind

	Children []Filter
	Inner    *Filter

	Lhs Operand
	Rhs Operand

	List []Operand
}

func All(children ...Filter) Filter { return Filter{Kind: KindAll, Children: children} }
func Any(children ...Filter) Filter { return Filter{Kind: KindAny, Children: children} }
func Not(inner Filter) Filter       { return Filter{Kind: KindNot, Inner: &inner} }

func Equal(lhs, rhs Operand) Filter             { return Filter{Kind: KindEqual, Lhs: lhs, Rhs: rhs} }
func NotEqual(lhs, rhs Operand) Filter          { return Filter{Kind: KindNotEqual, Lhs: lhs, Rhs: rhs} }
func Less(lhs, rhs Operand) Filter              { return Filter{Kind: KindLess, Lhs: lhs, Rhs: rhs} }
func LessOrEqual(lhs, rhs Operand) Filter        { return Filter{Kind: KindLessOrEqual, Lhs: lhs, Rhs: rhs} }
func Greater(lhs, rhs Operand) Filter           { return Filter{Kind: KindGreater, Lhs: lhs, Rhs: rhs} }
func GreaterOrEqual(lhs, rhs Operand) Filter    { return Filter{Kind: KindGreaterOrEqual, Lhs: lhs, Rhs: rhs} }
func StartsWith(lhs, rhs Operand) Filter        { return Filter{Kind: KindStartsWith, Lhs: lhs, Rhs: rhs} }
func EndsWith(lhs, rhs Operand) Filter          { return Filter{Kind: KindEndsWith, Lhs: lhs, Rhs: rhs} }
func ContainsSegment(lhs, rhs Operand) Filter   { return Filter{Kind: KindContainsSegment, Lhs: lhs, Rhs: rhs} }
func In(lhs Operand, list ...Operand) Filter    { return Filter{Kind: KindIn, Lhs: lhs, List: list} }

// orderable reports whether t supports Less/Greater-style comparison.
func orderable(t ValueType) bool {
	return t == TypeNumber || t == TypeTimestamp || t == TypeText || t == TypeAny
}

// textLike reports whether t supports StartsWith/EndsWith/ContainsSegment.
func textLike(t ValueType) bool {
	return t == TypeText || t == TypeBaseUrl || t == TypeAny
}

// TypeCheck walks the filter tree and rejects operator/operand combinations
// that can never be satisfiable, surfacing a *Error with Kind
// ErrTypeMismatch. It runs entirely over ValueType metadata and never
// touches schema or storage, so it is safe to run before any table is
// consulted.
func TypeCheck(f Filter) error {
	switch f.Kind {
	case KindAll, KindAny:
		for _, child := range f.Children {
			if err := TypeCheck(child); err != nil {
				return err
			}
		}
		return nil

	case KindNot:
		if f.Inner == nil {
			return &Error{Kind: ErrFilterValidation, Message: "Not requires an inner filter"}
		}
		return TypeCheck(*f.Inner)

	case KindEqual, KindNotEqual:
		return checkCompatible(f.Kind, f.Lhs, f.Rhs)

	case KindLess, KindLessOrEqual, KindGreater, KindGreaterOrEqual:
		if err := checkCompatible(f.Kind, f.Lhs, f.Rhs); err != nil {
			return err
		}
		lt, rt := f.Lhs.ExpectedType(), f.Rhs.ExpectedType()
		if !orderable(lt) || !orderable(rt) {
			return mismatch(f.Kind, f.Lhs, f.Rhs, "operands are not orderable")
		}
		return nil

	case KindStartsWith, KindEndsWith, KindContainsSegment:
		lt, rt := f.Lhs.ExpectedType(), f.Rhs.ExpectedType()
		if !textLike(lt) || !textLike(rt) {
			return mismatch(f.Kind, f.Lhs, f.Rhs, "operands are not text-like")
		}
		return nil

	case KindIn:
		lt := f.Lhs.ExpectedType()
		for _, elem := range f.List {
			if !lt.compatible(elem.ExpectedType()) {
				return mismatch(f.Kind, f.Lhs, elem, "element type does not match left operand")
			}
		}
		return nil

	default:
		return &Error{Kind: ErrFilterValidation, Message: fmt.Sprintf("unknown filter kind %v", f.Kind)}
	}
}

func checkCompatible(kind Kind, lhs, rhs Operand) error {
	if !lhs.ExpectedType().compatible(rhs.ExpectedType()) {
		return mismatch(kind, lhs, rhs, "operand types do not match")
	}
	return nil
}

func mismatch(kind Kind, lhs, rhs Operand, reason string) error {
	return &Error{
		Kind: ErrTypeMismatch,
		Message: fmt.Sprintf("%s(%s: %s, %s: %s): %s",
			kind, lhs, lhs.ExpectedType(), rhs, rhs.ExpectedType(), reason),
	}
}
