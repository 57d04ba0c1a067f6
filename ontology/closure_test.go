package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"graphstore.dev/identifier"
)

type fakeResolver map[string]*EntityType

func (f fakeResolver) ResolveEntityType(v identifier.VersionedUrl) (*EntityType, bool) {
	et, ok := f[v.String()]
	return et, ok
}

func mustVersioned(t *testing.T, s string) identifier.VersionedUrl {
	t.Helper()
	v, err := identifier.ParseVersionedUrl(s)
	require.NoError(t, err)
	return v
}

func TestInheritanceClosureDetectsCycle(t *testing.T) {
	a := mustVersioned(t, "https://example.org/type/a/v/1")
	b := mustVersioned(t, "https://example.org/type/b/v/1")

	resolver := fakeResolver{
		a.String(): {InheritsFrom: []identifier.VersionedUrl{b}},
		b.String(): {InheritsFrom: []identifier.VersionedUrl{a}},
	}

	_, err := InheritanceClosure(resolver, a)
	require.Error(t, err)
	var cycleErr *ClosureError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestInheritsFromLinkTransitive(t *testing.T) {
	link := mustVersioned(t, ReservedLinkTypeBaseUrl.String()+"v/1")
	middle := mustVersioned(t, "https://example.org/type/connects/v/1")
	leaf := mustVersioned(t, "https://example.org/type/friendship/v/1")

	resolver := fakeResolver{
		link.String():   {},
		middle.String(): {InheritsFrom: []identifier.VersionedUrl{link}},
		leaf.String():   {InheritsFrom: []identifier.VersionedUrl{middle}},
	}

	ok, err := InheritsFromLink(resolver, leaf)
	require.NoError(t, err)
	assert.True(t, ok)

	unrelated := mustVersioned(t, "https://example.org/type/person/v/1")
	resolver[unrelated.String()] = &EntityType{}
	ok, err = InheritsFromLink(resolver, unrelated)
	require.NoError(t, err)
	assert.False(t, ok)
}
