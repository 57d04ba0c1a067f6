package ontology

import (
	"fmt"

	"graphstore.dev/identifier"
)

// ClosureError is returned when computing an inheritance/constraint closure
// discovers a cycle in ontology `inherits_from` edges, which can legitimately
// occur during partial or adversarial input.
type ClosureError struct {
	Cycle []identifier.VersionedUrl
}

func (e *ClosureError) Error() string {
	return fmt.Sprintf("ontology: cycle detected in inherits_from closure: %v", e.Cycle)
}

// TypeResolver looks up an EntityType's schema-declared edges by versioned
// URL, the minimal contract InheritanceClosure needs to walk inheritance without
// depending on the store package (avoiding an import cycle: store depends
// on ontology, not the reverse).
type TypeResolver interface {
	ResolveEntityType(v identifier.VersionedUrl) (*EntityType, bool)
}

// InheritanceClosure computes the full (possibly multi-level) set of
// EntityType versioned URLs that root transitively inherits from, walking
// InheritsFrom edges via resolver. It rejects cycles rather than looping
// forever, using a depth-first walk with an explicit recursion stack.
func InheritanceClosure(resolver TypeResolver, root identifier.VersionedUrl) ([]identifier.VersionedUrl, error) {
	visited := make(map[string]bool)
	stack := make(map[string]bool)
	var order []identifier.VersionedUrl

	var walk func(v identifier.VersionedUrl, path []identifier.VersionedUrl) error
	walk = func(v identifier.VersionedUrl, path []identifier.VersionedUrl) error {
		key := v.String()
		if stack[key] {
			return &ClosureError{Cycle: append(append([]identifier.VersionedUrl{}, path...), v)}
		}
		if visited[key] {
			return nil
		}
		visited[key] = true
		stack[key] = true
		defer delete(stack, key)

		entityType, ok := resolver.ResolveEntityType(v)
		if !ok {
			return fmt.Errorf("ontology: entity type %s not found while computing closure", v)
		}
		for _, parent := range entityType.InheritsFrom {
			if err := walk(parent, append(path, v)); err != nil {
				return err
			}
			order = append(order, parent)
		}
		return nil
	}

	if err := walk(root, nil); err != nil {
		return nil, err
	}
	return dedupeVersionedUrls(order), nil
}

// InheritsFromLink reports whether root's inheritance closure includes the
// reserved Link type, the precondition required of every entity type used
// as a link type.
func InheritsFromLink(resolver TypeResolver, root identifier.VersionedUrl) (bool, error) {
	closure, err := InheritanceClosure(resolver, root)
	if err != nil {
		return false, err
	}
	for _, v := range closure {
		if v.Base.Equal(ReservedLinkTypeBaseUrl) {
			return true, nil
		}
	}
	return root.Base.Equal(ReservedLinkTypeBaseUrl), nil
}

func dedupeVersionedUrls(in []identifier.VersionedUrl) []identifier.VersionedUrl {
	seen := make(map[string]bool, len(in))
	out := make([]identifier.VersionedUrl, 0, len(in))
	for _, v := range in {
		key := v.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
