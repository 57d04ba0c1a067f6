package query

import (
	"fmt"
	"strings"

	"graphstore.dev/filter"
	"graphstore.dev/temporal"
)

// Compiled is the parameterized SQL a StructuralQuery compiles to: Args are
// bound positionally at $1, $2, ... and never interpolated into SQL.
type Compiled struct {
	SQL  string
	Args []any
}

type compileState struct {
	planner *joinPlanner
	args    []any
}

func (s *compileState) bindParam(v filter.Value) string {
	s.args = append(s.args, goValue(v))
	return fmt.Sprintf("$%d", len(s.args))
}

func goValue(v filter.Value) any {
	switch v.Type {
	case filter.TypeUuid:
		return v.Uuid
	case filter.TypeTimestamp:
		return v.Timestamp
	case filter.TypeBaseUrl:
		return v.BaseUrl.String()
	case filter.TypeVersionedUrl:
		return v.VersionedUrl.String()
	case filter.TypeNumber:
		return v.Number
	case filter.TypeText:
		return v.Text
	case filter.TypeBool:
		return v.Bool
	default:
		return string(v.Json)
	}
}

// Compile walks a type-checked Filter and emits its WHERE clause, the
// temporal predicates for the resolved axes, and draft visibility, then
// wraps it in a single SELECT with whatever LEFT JOINs the filter required.
// The same StructuralQuery (and the same now) always yields identical SQL
// and the same parameter order.
func Compile(q StructuralQuery, now temporal.Timestamp) (*Compiled, error) {
	if err := filter.TypeCheck(q.Filter); err != nil {
		var ferr *filter.Error
		if asFilterError(err, &ferr) {
			return nil, wrapFilterError(ferr)
		}
		return nil, &Error{Kind: ErrFilterValidation, Message: err.Error()}
	}

	resolved, err := q.Temporal.Resolve(now)
	if err != nil {
		return nil, &Error{Kind: ErrFilterValidation, Message: err.Error()}
	}

	state := &compileState{planner: newJoinPlanner()}
	where, err := compileFilter(state, q.Filter, 0, 0, "e")
	if err != nil {
		return nil, err
	}

	var predicates []string
	if where != "" {
		predicates = append(predicates, where)
	}
	predicates = append(predicates, temporalPredicate(resolved, "e")...)
	if !q.IncludeDrafts {
		predicates = append(predicates, "e.draft_id IS NULL")
	}
	if q.Cursor != nil {
		if cursorSQL, cursorArgs := cursorPredicate(q.Sorting, *q.Cursor, len(state.args)); cursorSQL != "" {
			predicates = append(predicates, cursorSQL)
			state.args = append(state.args, cursorArgs...)
		}
	}

	sql := "SELECT e.web_id, e.entity_uuid, e.draft_id, e.properties, e.decision_time, e.transaction_time" +
		" FROM entities AS e" + state.planner.sql()
	if len(predicates) > 0 {
		sql += " WHERE " + strings.Join(predicates, " AND ")
	}
	sql += orderBySQL(q.Sorting)
	if q.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	return &Compiled{SQL: sql, Args: state.args}, nil
}

func asFilterError(err error, target **filter.Error) bool {
	if fe, ok := err.(*filter.Error); ok {
		*target = fe
		return true
	}
	return false
}

func temporalPredicate(r temporal.Resolved, alias string) []string {
	col := func(axis temporal.Axis) string {
		if axis == temporal.DecisionTime {
			return alias + ".decision_time"
		}
		return alias + ".transaction_time"
	}
	pinnedCol := col(r.PinnedAxis)
	variableCol := col(r.VariableAxis)
	return []string{
		fmt.Sprintf("%s @> %s::timestamptz", pinnedCol, quoteTimestamp(r.PinnedAt)),
		fmt.Sprintf("%s && tstzrange(%s, %s, '[)')", variableCol, boundLiteral(r.Variable.Start), boundLiteral(r.Variable.End)),
	}
}

func quoteTimestamp(t temporal.Timestamp) string {
	return "'" + t.String() + "'"
}

func boundLiteral(b temporal.Bound) string {
	if b.IsUnbounded() {
		return "NULL"
	}
	return "'" + b.At.String() + "'"
}

func orderBySQL(sorting []SortKey) string {
	if len(sorting) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sorting))
	for _, s := range sorting {
		col, err := leafColumn(s.Path, "e")
		if err != nil {
			continue
		}
		dir := "ASC"
		if s.Order == Descending {
			dir = "DESC"
		}
		parts = append(parts, col.expr+" "+dir)
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// cursorPredicate builds the lexicographic "(sort_key_tuple) > (cursor_tuple)"
// predicate row-constructor comparison for resuming pagination.
func cursorPredicate(sorting []SortKey, cursor Cursor, argOffset int) (string, []any) {
	if len(sorting) == 0 || len(sorting) != len(cursor.Values) {
		return "", nil
	}
	cols := make([]string, 0, len(sorting))
	placeholders := make([]string, 0, len(sorting))
	args := make([]any, 0, len(sorting))
	for i, s := range sorting {
		col, err := leafColumn(s.Path, "e")
		if err != nil {
			return "", nil
		}
		cols = append(cols, col.expr)
		args = append(args, goValue(cursor.Values[i]))
		placeholders = append(placeholders, fmt.Sprintf("$%d", argOffset+i+1))
	}
	op := ">"
	if sorting[0].Order == Descending {
		op = "<"
	}
	return fmt.Sprintf("(%s) %s (%s)", strings.Join(cols, ", "), op, strings.Join(placeholders, ", ")), args
}

// compileFilter recursively compiles a Filter node into a SQL boolean
// expression, threading conditionIndex (which Or branch this node descends
// from) and depth (how many link-traversal joins deep) through to join
// deduplication.
func compileFilter(s *compileState, f filter.Filter, conditionIndex, depth int, alias string) (string, error) {
	switch f.Kind {
	case filter.KindAll:
		return compileCombinator(s, f.Children, conditionIndex, depth, alias, " AND ")
	case filter.KindAny:
		parts := make([]string, 0, len(f.Children))
		for i, child := range f.Children {
			branchIndex := conditionIndex*31 + i + 1
			part, err := compileFilter(s, child, branchIndex, depth, alias)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case filter.KindNot:
		if f.Inner == nil {
			return "", &Error{Kind: ErrFilterValidation, Message: "Not requires an inner filter"}
		}
		inner, err := compileFilter(s, *f.Inner, conditionIndex, depth, alias)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case filter.KindEqual:
		return compileBinary(s, f, conditionIndex, depth, alias, "=")
	case filter.KindNotEqual:
		return compileBinary(s, f, conditionIndex, depth, alias, "!=")
	case filter.KindLess:
		return compileBinary(s, f, conditionIndex, depth, alias, "<")
	case filter.KindLessOrEqual:
		return compileBinary(s, f, conditionIndex, depth, alias, "<=")
	case filter.KindGreater:
		return compileBinary(s, f, conditionIndex, depth, alias, ">")
	case filter.KindGreaterOrEqual:
		return compileBinary(s, f, conditionIndex, depth, alias, ">=")
	case filter.KindStartsWith:
		return compileLike(s, f, conditionIndex, depth, alias, "%s LIKE %s || '%%'")
	case filter.KindEndsWith:
		return compileLike(s, f, conditionIndex, depth, alias, "%s LIKE '%%' || %s")
	case filter.KindContainsSegment:
		return compileLike(s, f, conditionIndex, depth, alias, "%s LIKE '%%' || %s || '%%'")
	case filter.KindIn:
		return compileIn(s, f, conditionIndex, depth, alias)
	default:
		return "", &Error{Kind: ErrFilterValidation, Message: fmt.Sprintf("cannot compile filter kind %v", f.Kind)}
	}
}

func compileCombinator(s *compileState, children []filter.Filter, conditionIndex, depth int, alias, joiner string) (string, error) {
	if len(children) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		part, err := compileFilter(s, child, conditionIndex, depth, alias)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

func compileOperand(s *compileState, conditionIndex, depth int, op filter.Operand, alias string) (string, error) {
	switch {
	case op.Path != nil:
		return compilePath(s, conditionIndex, depth, *op.Path, alias)
	case op.Parameter != nil:
		return s.bindParam(*op.Parameter), nil
	default:
		return "", &Error{Kind: ErrFilterValidation, Message: "operand has neither a path nor a parameter"}
	}
}

func compilePath(s *compileState, conditionIndex, depth int, p filter.Path, alias string) (string, error) {
	switch p.Kind {
	case filter.PathOutgoingLinks:
		childAlias := s.planner.joinFor(conditionIndex, depth, alias, "entity_uuid", "left_entity_uuid")
		if p.Nested == nil {
			return childAlias + ".entity_uuid", nil
		}
		return compilePath(s, conditionIndex, depth+1, *p.Nested, childAlias)
	case filter.PathIncomingLinks:
		childAlias := s.planner.joinFor(conditionIndex, depth, alias, "entity_uuid", "right_entity_uuid")
		if p.Nested == nil {
			return childAlias + ".entity_uuid", nil
		}
		return compilePath(s, conditionIndex, depth+1, *p.Nested, childAlias)
	default:
		col, err := leafColumn(p, alias)
		if err != nil {
			return "", err
		}
		return col.expr, nil
	}
}

func compileBinary(s *compileState, f filter.Filter, conditionIndex, depth int, alias, op string) (string, error) {
	lhs, err := compileOperand(s, conditionIndex, depth, f.Lhs, alias)
	if err != nil {
		return "", err
	}
	rhs, err := compileOperand(s, conditionIndex, depth, f.Rhs, alias)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", lhs, op, rhs), nil
}

func compileLike(s *compileState, f filter.Filter, conditionIndex, depth int, alias, format string) (string, error) {
	lhs, err := compileOperand(s, conditionIndex, depth, f.Lhs, alias)
	if err != nil {
		return "", err
	}
	rhs, err := compileOperand(s, conditionIndex, depth, f.Rhs, alias)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, lhs, rhs), nil
}

func compileIn(s *compileState, f filter.Filter, conditionIndex, depth int, alias string) (string, error) {
	lhs, err := compileOperand(s, conditionIndex, depth, f.Lhs, alias)
	if err != nil {
		return "", err
	}
	placeholders := make([]string, 0, len(f.List))
	for _, elem := range f.List {
		rhs, err := compileOperand(s, conditionIndex, depth, elem, alias)
		if err != nil {
			return "", err
		}
		placeholders = append(placeholders, rhs)
	}
	return fmt.Sprintf("%s IN (%s)", lhs, strings.Join(placeholders, ", ")), nil
}
