package subgraph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/subgraph"
)

// fakeSource is a fixed adjacency list keyed by (vertex id, edge kind),
// letting the traversal algorithm be exercised without a database.
type fakeSource struct {
	edges map[string]map[subgraph.EdgeKind][]subgraph.Vertex
}

func newFakeSource() *fakeSource {
	return &fakeSource{edges: make(map[string]map[subgraph.EdgeKind][]subgraph.Vertex)}
}

func (f *fakeSource) link(from subgraph.Vertex, kind subgraph.EdgeKind, to ...subgraph.Vertex) {
	key := from.Id
	if f.edges[key] == nil {
		f.edges[key] = make(map[subgraph.EdgeKind][]subgraph.Vertex)
	}
	f.edges[key][kind] = append(f.edges[key][kind], to...)
}

func (f *fakeSource) Neighbors(_ context.Context, v subgraph.Vertex, edge subgraph.EdgeKind) ([]subgraph.Vertex, error) {
	return f.edges[v.Id][edge], nil
}

func entity(id string) subgraph.Vertex     { return subgraph.Vertex{Kind: subgraph.VertexEntity, Id: id} }
func entityType(id string) subgraph.Vertex { return subgraph.Vertex{Kind: subgraph.VertexEntityType, Id: id} }

func TestResolveRejectsNeitherModeSupplied(t *testing.T) {
	_, err := subgraph.Resolve(context.Background(), newFakeSource(), nil, nil, nil)
	require.Error(t, err)
	assert.True(t, graphstoreerr.Is(err, graphstoreerr.EitherMode))
}

func TestResolveRejectsBothModesSupplied(t *testing.T) {
	_, err := subgraph.Resolve(context.Background(), newFakeSource(), nil,
		subgraph.GraphResolveDepths{subgraph.EdgeHasType: 1},
		[]subgraph.TraversalPath{{{Kind: subgraph.EdgeHasType}}})
	require.Error(t, err)
	assert.True(t, graphstoreerr.Is(err, graphstoreerr.EitherMode))
}

func TestResolveDepthsEachEdgeKindDecrementsItsOwnCounter(t *testing.T) {
	src := newFakeSource()
	root := entity("a")
	typeA := entityType("T1")
	typeParent := entityType("T0")
	src.link(root, subgraph.EdgeHasType, typeA)
	src.link(typeA, subgraph.EdgeInheritsFrom, typeParent)

	result, err := subgraph.Resolve(context.Background(), src, []subgraph.Vertex{root},
		subgraph.GraphResolveDepths{subgraph.EdgeHasType: 1, subgraph.EdgeInheritsFrom: 1}, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []subgraph.Vertex{root, typeA, typeParent}, result.Vertices)
	assert.Len(t, result.Edges, 2)
}

func TestResolveDepthsExhaustedCounterStopsThatEdgeKindOnly(t *testing.T) {
	src := newFakeSource()
	root := entity("a")
	typeA := entityType("T1")
	typeParent := entityType("T0")
	src.link(root, subgraph.EdgeHasType, typeA)
	src.link(typeA, subgraph.EdgeInheritsFrom, typeParent)

	result, err := subgraph.Resolve(context.Background(), src, []subgraph.Vertex{root},
		subgraph.GraphResolveDepths{subgraph.EdgeHasType: 1, subgraph.EdgeInheritsFrom: 0}, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []subgraph.Vertex{root, typeA}, result.Vertices)
	assert.Len(t, result.Edges, 1)
}

func TestResolveDepthsDeduplicatesByVertexIdentityAndEmitsBackEdges(t *testing.T) {
	src := newFakeSource()
	a, b, c := entity("a"), entity("b"), entity("c")
	src.link(a, subgraph.EdgeOutgoingLink, b)
	src.link(b, subgraph.EdgeOutgoingLink, c)
	src.link(c, subgraph.EdgeOutgoingLink, a) // cycle back to the root

	result, err := subgraph.Resolve(context.Background(), src, []subgraph.Vertex{a},
		subgraph.GraphResolveDepths{subgraph.EdgeOutgoingLink: 5}, nil)
	require.NoError(t, err)

	assert.Len(t, result.Vertices, 3) // a, b, c once each despite the cycle
	assert.Len(t, result.Edges, 3)    // a->b, b->c, c->a (back-edge) all emitted
}

func TestResolveTraversalPathsFollowsOnlyNamedEdges(t *testing.T) {
	src := newFakeSource()
	root := entity("a")
	typeA := entityType("T1")
	unrelated := entity("z")
	src.link(root, subgraph.EdgeHasType, typeA)
	src.link(root, subgraph.EdgeOutgoingLink, unrelated)

	result, err := subgraph.Resolve(context.Background(), src, []subgraph.Vertex{root}, nil,
		[]subgraph.TraversalPath{{{Kind: subgraph.EdgeHasType}}})
	require.NoError(t, err)

	assert.ElementsMatch(t, []subgraph.Vertex{root, typeA}, result.Vertices)
}

func TestResolveTraversalPathsTransitiveStepFollowsFullClosure(t *testing.T) {
	src := newFakeSource()
	t1, t2, t3 := entityType("T1"), entityType("T2"), entityType("T3")
	src.link(t1, subgraph.EdgeInheritsFrom, t2)
	src.link(t2, subgraph.EdgeInheritsFrom, t3)

	result, err := subgraph.Resolve(context.Background(), src, []subgraph.Vertex{t1}, nil,
		[]subgraph.TraversalPath{{{Kind: subgraph.EdgeInheritsFrom, Transitive: true}}})
	require.NoError(t, err)

	assert.ElementsMatch(t, []subgraph.Vertex{t1, t2, t3}, result.Vertices)
	assert.Len(t, result.Edges, 2)
}

func TestResolveOutputIsSortedDeterministically(t *testing.T) {
	src := newFakeSource()
	root := entity("a")
	x, y := entityType("TX"), entityType("TY")
	src.link(root, subgraph.EdgeHasType, y, x) // deliberately out of order

	result, err := subgraph.Resolve(context.Background(), src, []subgraph.Vertex{root},
		subgraph.GraphResolveDepths{subgraph.EdgeHasType: 1}, nil)
	require.NoError(t, err)

	require.Len(t, result.Vertices, 3)
	// entity (kind 0) sorts before entity_type (kind 3); within entity_type, by id.
	assert.Equal(t, root, result.Vertices[0])
	assert.Equal(t, x, result.Vertices[1])
	assert.Equal(t, y, result.Vertices[2])
}
