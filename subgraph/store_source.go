package subgraph

import (
	"context"

	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/store"
)

// StoreSource is the production Source: it answers Neighbors by asking the
// record store for the one relationship the requested EdgeKind names,
// resolving entity types from the store's in-memory closure cache and
// entities via a handful of targeted queries.
type StoreSource struct {
	store *store.Store
}

// NewStoreSource wraps s as a subgraph Source.
func NewStoreSource(s *store.Store) *StoreSource {
	return &StoreSource{store: s}
}

func (src *StoreSource) Neighbors(ctx context.Context, v Vertex, edge EdgeKind) ([]Vertex, error) {
	switch v.Kind {
	case VertexEntity:
		return src.entityNeighbors(ctx, v, edge)
	case VertexEntityType:
		return src.entityTypeNeighbors(v, edge)
	default:
		return nil, nil
	}
}

func (src *StoreSource) entityNeighbors(ctx context.Context, v Vertex, edge EdgeKind) ([]Vertex, error) {
	id, err := identifier.ParseEntityId(v.Id)
	if err != nil {
		return nil, graphstoreerr.Wrap("subgraph.StoreSource", err)
	}

	switch edge {
	case EdgeHasType:
		types, err := src.store.EntityTypesOf(ctx, id)
		if err != nil {
			return nil, graphstoreerr.Wrap("subgraph.StoreSource", err)
		}
		out := make([]Vertex, len(types))
		for i, t := range types {
			out[i] = EntityTypeVertex(t)
		}
		return out, nil

	case EdgeOutgoingLink:
		links, err := src.store.OutgoingLinkEntityIds(ctx, id)
		if err != nil {
			return nil, graphstoreerr.Wrap("subgraph.StoreSource", err)
		}
		return entityVertices(links), nil

	case EdgeIncomingLink:
		links, err := src.store.IncomingLinkEntityIds(ctx, id)
		if err != nil {
			return nil, graphstoreerr.Wrap("subgraph.StoreSource", err)
		}
		return entityVertices(links), nil

	case EdgeHasLeftEntity, EdgeHasRightEntity:
		ed, ok, err := src.store.LoadEdition(ctx, id)
		if err != nil {
			return nil, graphstoreerr.Wrap("subgraph.StoreSource", err)
		}
		if !ok || ed.Link == nil {
			return nil, nil
		}
		if edge == EdgeHasLeftEntity {
			return []Vertex{EntityVertex(ed.Link.LeftEntityId)}, nil
		}
		return []Vertex{EntityVertex(ed.Link.RightEntityId)}, nil

	default:
		return nil, nil
	}
}

func (src *StoreSource) entityTypeNeighbors(v Vertex, edge EdgeKind) ([]Vertex, error) {
	versioned, err := identifier.ParseVersionedUrl(v.Id)
	if err != nil {
		return nil, graphstoreerr.Wrap("subgraph.StoreSource", err)
	}
	et, ok := src.store.ResolveEntityType(versioned)
	if !ok {
		return nil, nil
	}

	switch edge {
	case EdgeInheritsFrom:
		return entityTypeVertices(et.InheritsFrom), nil
	case EdgeConstrainsPropertiesOn:
		return propertyTypeVertices(et.ConstrainsPropertiesOn), nil
	case EdgeConstrainsLinksOn:
		return entityTypeVertices(et.ConstrainsLinksOn), nil
	case EdgeConstrainsLinkDestinationsOn:
		return entityTypeVertices(et.ConstrainsLinkDestinationsOn), nil
	default:
		return nil, nil
	}
}

func entityVertices(ids []identifier.EntityId) []Vertex {
	out := make([]Vertex, len(ids))
	for i, id := range ids {
		out[i] = EntityVertex(id)
	}
	return out
}

func entityTypeVertices(urls []identifier.VersionedUrl) []Vertex {
	out := make([]Vertex, len(urls))
	for i, u := range urls {
		out[i] = EntityTypeVertex(u)
	}
	return out
}

func propertyTypeVertices(urls []identifier.VersionedUrl) []Vertex {
	out := make([]Vertex, len(urls))
	for i, u := range urls {
		out[i] = PropertyTypeVertex(u)
	}
	return out
}
