package facade

import (
	"context"

	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/principal"
	"graphstore.dev/subgraph"
)

// GetEntitySubgraphRequest composes a GetEntities call with exactly one of
// the two subgraph traversal modes; subgraph.Resolve itself enforces the
// either/or once the roots are known.
type GetEntitySubgraphRequest struct {
	Roots          GetEntitiesRequest
	ResolveDepths  subgraph.GraphResolveDepths
	TraversalPaths []subgraph.TraversalPath
}

// GetEntitySubgraph runs the root selection through GetEntities, then
// traverses from those roots using whichever of ResolveDepths/TraversalPaths
// is populated.
func (svc *Service) GetEntitySubgraph(ctx context.Context, actor identifier.ActorId, req GetEntitySubgraphRequest) (*subgraph.Result, error) {
	if err := svc.authorize(ctx, "facade.GetEntitySubgraph", actor, "get_entity_subgraph", principal.ResourceRef{Kind: "entity", Id: "*"}); err != nil {
		return nil, err
	}

	roots, err := svc.GetEntities(ctx, actor, req.Roots)
	if err != nil {
		return nil, err
	}

	rootVertices := make([]subgraph.Vertex, 0, len(roots))
	for _, ed := range roots {
		rootVertices = append(rootVertices, subgraph.EntityVertex(ed.EntityId))
	}

	result, err := subgraph.Resolve(ctx, svc.source, rootVertices, req.ResolveDepths, req.TraversalPaths)
	if err != nil {
		return nil, graphstoreerr.Wrap("facade.GetEntitySubgraph", err)
	}
	return result, nil
}
