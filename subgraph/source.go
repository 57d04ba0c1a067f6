package subgraph

import "context"

// Source supplies the neighbors of a vertex along one edge kind. It is the
// only way the resolver touches the backend, so the traversal algorithm in
// resolve.go can be exercised against a fake in tests without a database.
type Source interface {
	Neighbors(ctx context.Context, v Vertex, edge EdgeKind) ([]Vertex, error)
}
