// Package facade is the thin request-to-core translation layer: it attaches
// the authenticated actor to every call, enforces the mutual-exclusion rules
// the request surface describes (filter vs. query, depths vs. traversal
// paths), authorizes the call against the principal store, and dispatches
// into query/store/subgraph/principal. It never grows its own business
// logic beyond that translation.
package facade

import (
	"context"

	"graphstore.dev/common"
	"graphstore.dev/db"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/principal"
	"graphstore.dev/store"
	"graphstore.dev/subgraph"
)

// Service bundles the core components a request surface call needs: the
// record store, the permission store, a subgraph source backed by the same
// store, and a raw pool to execute compiled structural queries against
// (neither store exposes bulk listing through its own method set).
type Service struct {
	store     *store.Store
	principal *principal.Store
	pool      *db.Pool
	source    subgraph.Source
	log       *common.ContextLogger
}

// New builds a Service. pool must be the same backend store.New was opened
// against, since GetEntities executes compiled SQL directly over it.
func New(s *store.Store, p *principal.Store, pool *db.Pool) *Service {
	return &Service{
		store:     s,
		principal: p,
		pool:      pool,
		source:    subgraph.NewStoreSource(s),
		log:       common.ServiceLogger("facade", "dev"),
	}
}

// authorize resolves whether actor may perform action against resource,
// surfacing graphstoreerr.Denied when the principal store's total decision
// is Deny (which is also the default when nothing matches).
func (svc *Service) authorize(ctx context.Context, op string, actor identifier.ActorId, action string, resource principal.ResourceRef) error {
	decision, err := svc.principal.Check(ctx, principal.Request{ActorId: actor, Action: action, Resource: resource})
	if err != nil {
		return graphstoreerr.Wrap(op, err)
	}
	if decision != principal.Permit {
		return graphstoreerr.Denied(op, resource.Kind+":"+resource.Id)
	}
	return nil
}
