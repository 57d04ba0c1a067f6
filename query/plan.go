package query

import "fmt"

// joinSpec is one LEFT JOIN the compiled query emits.
type joinSpec struct {
	alias        string
	parentAlias  string
	parentColumn string
	childColumn  string
}

// joinPlanner deduplicates joins by the "(table, condition_index,
// chain_depth)" key the compiler's guarantees are defined in terms of: the
// same path reached through the same condition branch at the same nesting
// depth shares one join, while a different Or branch (a different
// conditionIndex) gets a fresh alias.
type joinPlanner struct {
	joins []joinSpec
	seen  map[string]string
}

func newJoinPlanner() *joinPlanner {
	return &joinPlanner{seen: make(map[string]string)}
}

// joinFor returns the alias for a self-join onto the entities table reached
// by following parentColumn = childColumn from parentAlias, creating it if
// this (conditionIndex, depth) combination hasn't been joined yet.
func (p *joinPlanner) joinFor(conditionIndex, depth int, parentAlias, parentColumn, childColumn string) string {
	key := fmt.Sprintf("entities_%d_%d", conditionIndex, depth)
	if alias, ok := p.seen[key]; ok {
		return alias
	}
	p.seen[key] = key
	p.joins = append(p.joins, joinSpec{
		alias:        key,
		parentAlias:  parentAlias,
		parentColumn: parentColumn,
		childColumn:  childColumn,
	})
	return key
}

func (p *joinPlanner) sql() string {
	out := ""
	for _, j := range p.joins {
		out += fmt.Sprintf(" LEFT JOIN entities AS %s ON %s.%s = %s.%s",
			j.alias, j.alias, j.childColumn, j.parentAlias, j.parentColumn)
	}
	return out
}
