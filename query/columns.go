package query

import (
	"fmt"

	"graphstore.dev/filter"
)

// column describes how a leaf (non-recursing) Path resolves against a table
// alias: the SQL expression to compare against. For PathProperties the
// property path segments are already folded into expr as jsonb -> / ->> steps.
type column struct {
	expr string
}

// leafColumn returns the SQL expression for every PathKind that does not
// require a join, i.e. everything except PathOutgoingLinks/PathIncomingLinks.
func leafColumn(p filter.Path, alias string) (column, error) {
	switch p.Kind {
	case filter.PathUuid:
		return column{expr: alias + ".entity_uuid"}, nil
	case filter.PathWebId:
		return column{expr: alias + ".web_id"}, nil
	case filter.PathDraftId:
		return column{expr: alias + ".draft_id"}, nil
	case filter.PathLeftEntityUuid:
		return column{expr: alias + ".left_entity_uuid"}, nil
	case filter.PathRightEntityUuid:
		return column{expr: alias + ".right_entity_uuid"}, nil
	case filter.PathEditionCreatedById:
		return column{expr: alias + ".created_by_id"}, nil
	case filter.PathArchivedById:
		return column{expr: alias + ".archived_by_id"}, nil
	case filter.PathDecisionTime:
		return column{expr: alias + ".decision_time"}, nil
	case filter.PathTransactionTime:
		return column{expr: alias + ".transaction_time"}, nil
	case filter.PathType:
		if p.Type == nil {
			return column{expr: alias + ".entity_type_base_url"}, nil
		}
		if p.Type.Kind == filter.EntityTypeVersion {
			return column{expr: alias + ".entity_type_version"}, nil
		}
		return column{expr: alias + ".entity_type_base_url"}, nil
	case filter.PathProperties:
		if len(p.Property) == 0 {
			return column{expr: alias + ".properties"}, nil
		}
		expr := alias + ".properties"
		for i, segment := range p.Property {
			op := "->"
			if i == len(p.Property)-1 {
				op = "->>"
			}
			expr = fmt.Sprintf("%s%s'%s'", expr, op, escapeJsonKey(segment))
		}
		return column{expr: expr}, nil
	default:
		return column{}, &Error{Kind: ErrPathUnknown, Message: fmt.Sprintf("path kind %v has no SQL column mapping", p.Kind)}
	}
}

func escapeJsonKey(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
