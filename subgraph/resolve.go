package subgraph

import (
	"context"
	"fmt"
	"sort"

	"graphstore.dev/graphstoreerr"
)

// GraphResolveDepths is the resolve-depths mode budget: how many hops of
// each edge kind to still follow. Values must be finite non-negative
// integers — there is deliberately no "unbounded" sentinel, so an unbounded
// request has to go through traversal-paths mode's Transitive step instead.
type GraphResolveDepths map[EdgeKind]int

func (d GraphResolveDepths) clone() GraphResolveDepths {
	out := make(GraphResolveDepths, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// PathStep is one element of a TraversalPath: follow edges of Kind, either a
// single hop or (Transitive) repeatedly until no new vertices are reached.
type PathStep struct {
	Kind       EdgeKind
	Transitive bool
}

// TraversalPath is an explicit sequence of edge kinds the resolver follows
// from the roots, each step's output frontier feeding the next step's input.
type TraversalPath []PathStep

// Resolve runs exactly one of the two traversal flavours: resolve-depths
// mode (depths non-empty) or traversal-paths mode (paths non-empty).
// Supplying both, or neither, is rejected with an EitherMode error.
func Resolve(ctx context.Context, source Source, roots []Vertex, depths GraphResolveDepths, paths []TraversalPath) (*Result, error) {
	hasDepths := len(depths) > 0
	hasPaths := len(paths) > 0
	if hasDepths == hasPaths {
		return nil, graphstoreerr.Either("subgraph.Resolve")
	}
	if hasDepths {
		return resolveDepths(ctx, source, roots, depths)
	}
	return resolveTraversalPaths(ctx, source, roots, paths)
}

// resolveDepths performs the depth-counter breadth-first traversal: each
// edge kind decrements only its own remaining-depth counter, so a vertex
// reached by following N can still be explored N hops further along a
// different edge kind M even after N has been exhausted.
func resolveDepths(ctx context.Context, source Source, roots []Vertex, depths GraphResolveDepths) (*Result, error) {
	for kind, d := range depths {
		if d < 0 {
			return nil, graphstoreerr.Invalid("subgraph.Resolve", fmt.Errorf("subgraph: negative resolve depth for edge kind %s", kind))
		}
	}

	type frontier struct {
		vertex    Vertex
		remaining GraphResolveDepths
	}

	visited := make(map[string]bool)
	var vertices []Vertex
	var edges []Edge
	var queue []frontier

	for _, r := range roots {
		if visited[r.key()] {
			continue
		}
		visited[r.key()] = true
		vertices = append(vertices, r)
		queue = append(queue, frontier{vertex: r, remaining: depths.clone()})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for kind, remaining := range cur.remaining {
			if remaining <= 0 {
				continue
			}
			neighbors, err := source.Neighbors(ctx, cur.vertex, kind)
			if err != nil {
				return nil, graphstoreerr.Wrap("subgraph.Resolve", err)
			}
			for _, n := range neighbors {
				edges = append(edges, Edge{From: cur.vertex, Kind: kind, To: n})
				if visited[n.key()] {
					continue // back-edge: emitted, not re-traversed
				}
				visited[n.key()] = true
				vertices = append(vertices, n)
				next := cur.remaining.clone()
				next[kind] = remaining - 1
				queue = append(queue, frontier{vertex: n, remaining: next})
			}
		}
	}

	return finalize(vertices, edges), nil
}

// resolveTraversalPaths follows each TraversalPath independently from the
// full root set, feeding each step's discovered frontier into the next.
func resolveTraversalPaths(ctx context.Context, source Source, roots []Vertex, paths []TraversalPath) (*Result, error) {
	visited := make(map[string]bool)
	var vertices []Vertex
	var edges []Edge

	add := func(v Vertex) {
		if visited[v.key()] {
			return
		}
		visited[v.key()] = true
		vertices = append(vertices, v)
	}
	for _, r := range roots {
		add(r)
	}

	for _, path := range paths {
		frontier := append([]Vertex{}, roots...)
		for _, step := range path {
			next, stepEdges, err := followStep(ctx, source, frontier, step)
			if err != nil {
				return nil, err
			}
			edges = append(edges, stepEdges...)
			for _, v := range next {
				add(v)
			}
			frontier = next
		}
	}

	return finalize(vertices, edges), nil
}

// followStep advances frontier by one PathStep, either a single hop over
// every frontier vertex or, for a transitive step, a breadth-first closure
// seeded from the whole frontier.
func followStep(ctx context.Context, source Source, frontier []Vertex, step PathStep) ([]Vertex, []Edge, error) {
	var out []Vertex
	var edges []Edge
	discovered := make(map[string]bool)

	visitNeighbors := func(from Vertex) ([]Vertex, error) {
		neighbors, err := source.Neighbors(ctx, from, step.Kind)
		if err != nil {
			return nil, err
		}
		var fresh []Vertex
		for _, n := range neighbors {
			edges = append(edges, Edge{From: from, Kind: step.Kind, To: n})
			if discovered[n.key()] {
				continue
			}
			discovered[n.key()] = true
			out = append(out, n)
			fresh = append(fresh, n)
		}
		return fresh, nil
	}

	if !step.Transitive {
		for _, v := range frontier {
			if _, err := visitNeighbors(v); err != nil {
				return nil, nil, graphstoreerr.Wrap("subgraph.Resolve", err)
			}
		}
		return out, edges, nil
	}

	queue := append([]Vertex{}, frontier...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		fresh, err := visitNeighbors(cur)
		if err != nil {
			return nil, nil, graphstoreerr.Wrap("subgraph.Resolve", err)
		}
		queue = append(queue, fresh...)
	}
	return out, edges, nil
}

// finalize dedupes exact-duplicate edges and sorts both slices into the
// resolver's deterministic output order: vertices by kind then id, edges by
// source (kind, id) then edge kind then destination (kind, id).
func finalize(vertices []Vertex, edges []Edge) *Result {
	sort.Slice(vertices, func(i, j int) bool {
		a, b := vertices[i], vertices[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Id != b.Id {
			return a.Id < b.Id
		}
		return a.Revision < b.Revision
	})

	seen := make(map[string]bool, len(edges))
	deduped := edges[:0]
	for _, e := range edges {
		key := e.From.key() + "\x00" + fmt.Sprint(e.Kind) + "\x00" + e.To.key()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, e)
	}

	sort.Slice(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.From.Kind != b.From.Kind {
			return a.From.Kind < b.From.Kind
		}
		if a.From.Id != b.From.Id {
			return a.From.Id < b.From.Id
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.To.Kind != b.To.Kind {
			return a.To.Kind < b.To.Kind
		}
		return a.To.Id < b.To.Id
	})

	return &Result{Vertices: vertices, Edges: deduped}
}
