package knowledge

import (
	"fmt"

	"graphstore.dev/identifier"
	"graphstore.dev/temporal"
)

// LinkData names the two endpoints of a link entity. Present only when the
// entity's type transitively inherits from the reserved Link type.
type LinkData struct {
	LeftEntityId  identifier.EntityId
	RightEntityId identifier.EntityId
}

// Edition is one immutable revision of an entity: the property tree, its
// per-property provenance, the EntityType(s) it claims membership in, the
// dual decision/transaction intervals, and optional link endpoints.
type Edition struct {
	EntityId   identifier.EntityId
	Properties Properties
	Metadata   map[string]PropertyProvenance

	Types []identifier.VersionedUrl

	DecisionTime    temporal.Interval
	TransactionTime temporal.Interval

	Provenance identifier.EditionProvenance

	Link *LinkData // nil unless this edition is a link entity
}

// IsLink reports whether this edition carries link endpoints.
func (e Edition) IsLink() bool { return e.Link != nil }

// IsLatestTransaction reports whether this edition is the currently live
// transaction-time row (not yet superseded or archived).
func (e Edition) IsLatestTransaction() bool { return e.TransactionTime.End.IsUnbounded() }

// Validate checks the edition-level invariants that don't require consulting
// the ontology/store layer (type-existence and link-type-inheritance checks
// live in store, since they need a resolver).
func (e Edition) Validate() error {
	if len(e.Types) == 0 {
		return fmt.Errorf("knowledge: entity edition %s must reference at least one entity type", e.EntityId)
	}
	// Draft entities are isolated: a draft link may only reference endpoints
	// that are themselves draft, and a non-draft link may never cite a draft
	// endpoint.
	if e.Link != nil {
		if e.EntityId.IsDraft() != e.Link.LeftEntityId.IsDraft() {
			return fmt.Errorf("knowledge: entity edition %s: left endpoint %s crosses draft isolation", e.EntityId, e.Link.LeftEntityId)
		}
		if e.EntityId.IsDraft() != e.Link.RightEntityId.IsDraft() {
			return fmt.Errorf("knowledge: entity edition %s: right endpoint %s crosses draft isolation", e.EntityId, e.Link.RightEntityId)
		}
	}
	return nil
}

// Entity is the immutable identity plus the mutable sequence of editions a
// store operation works against. The store package is responsible for
// loading/ordering Editions; this struct is a convenience aggregate for
// callers that already have the full history in hand (e.g. subgraph
// assembly).
type Entity struct {
	Id       identifier.EntityId
	Editions []Edition // ordered oldest-first by TransactionTime.Start
}

// Latest returns the currently live edition (TransactionTime end unbounded),
// or false if every edition has been superseded (which should not happen for
// a live entity, but the zero value guards callers against an empty history).
func (e Entity) Latest() (Edition, bool) {
	for i := len(e.Editions) - 1; i >= 0; i-- {
		if e.Editions[i].IsLatestTransaction() {
			return e.Editions[i], true
		}
	}
	return Edition{}, false
}

// At returns the edition whose transaction interval contains txTime, the
// lookup a pinned-transaction-time read performs.
func (e Entity) At(txTime temporal.Timestamp) (Edition, bool) {
	for _, ed := range e.Editions {
		if ed.TransactionTime.Contains(txTime) {
			return ed, true
		}
	}
	return Edition{}, false
}
