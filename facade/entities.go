package facade

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"

	"graphstore.dev/filter"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/principal"
	"graphstore.dev/query"
	"graphstore.dev/store"
	"graphstore.dev/temporal"
)

// CreateEntity authorizes and installs a new entity.
func (svc *Service) CreateEntity(ctx context.Context, actor identifier.ActorId, ed *knowledge.Edition) error {
	if err := svc.authorize(ctx, "facade.CreateEntity", actor, "create_entity", principal.ResourceRef{Kind: "entity", Id: ed.EntityId.String()}); err != nil {
		return err
	}
	return svc.store.CreateEntity(ctx, actor, ed)
}

// PatchEntity authorizes and applies a property/type patch to id's latest edition.
func (svc *Service) PatchEntity(ctx context.Context, actor identifier.ActorId, id identifier.EntityId, axis temporal.Axis, patch knowledge.Properties, newTypes []identifier.VersionedUrl) error {
	if err := svc.authorize(ctx, "facade.PatchEntity", actor, "patch_entity", principal.ResourceRef{Kind: "entity", Id: id.String()}); err != nil {
		return err
	}
	return svc.store.PatchEntity(ctx, actor, id, axis, patch, newTypes)
}

// ValidateEntity runs the same structural checks CreateEntity enforces,
// without writing anything. No authorization is required: it has no side
// effect to gate.
func (svc *Service) ValidateEntity(ctx context.Context, ed *knowledge.Edition) []store.Diagnostic {
	return svc.store.ValidateEntity(ctx, ed)
}

// GetEntitiesRequest is the mutually-exclusive pair the request surface
// allows: either a bare Filter (evaluated with the default decision-time
// variable / transaction-time-now axes) or a fully-specified StructuralQuery
// carrying its own temporal axes, sort, cursor, and limit.
type GetEntitiesRequest struct {
	Filter *filter.Filter
	Query  *query.StructuralQuery
}

func (r GetEntitiesRequest) resolve() (query.StructuralQuery, error) {
	if (r.Filter == nil) == (r.Query == nil) {
		return query.StructuralQuery{}, graphstoreerr.Either("facade.GetEntities")
	}
	if r.Query != nil {
		return *r.Query, nil
	}
	return query.StructuralQuery{
		Record:   filter.RecordEntity,
		Filter:   *r.Filter,
		Temporal: temporal.DecisionTimeVariableToNow(),
	}, nil
}

// GetEntities authorizes the read, compiles req into SQL, and executes it
// against the live entities view, reassembling each matched row into an
// Edition. Properties and the two temporal intervals come directly off the
// matched row; types are re-read through store.EntityTypesOf for each
// matched entity; provenance and link endpoints are not part of the view's
// column set (the compiler's leaf-column mapping never needs them for
// filtering) — a caller that needs those for one particular entity calls
// store.LoadEdition on its EntityId instead.
func (svc *Service) GetEntities(ctx context.Context, actor identifier.ActorId, req GetEntitiesRequest) ([]knowledge.Edition, error) {
	if err := svc.authorize(ctx, "facade.GetEntities", actor, "get_entities", principal.ResourceRef{Kind: "entity", Id: "*"}); err != nil {
		return nil, err
	}

	sq, err := req.resolve()
	if err != nil {
		return nil, err
	}

	compiled, err := query.Compile(sq, temporal.Now())
	if err != nil {
		return nil, graphstoreerr.Wrap("facade.GetEntities", err)
	}

	rows, err := svc.pool.Query(ctx, compiled.SQL, compiled.Args...)
	if err != nil {
		return nil, graphstoreerr.Wrap("facade.GetEntities", err)
	}
	defer rows.Close()

	byKey := make(map[string]*knowledge.Edition)
	var order []string
	for rows.Next() {
		var (
			webId, entityUuid, draftId string
			rawProps                   []byte
			decisionRange, txRange     pgtype.Range[pgtype.Timestamptz]
		)
		if err := rows.Scan(&webId, &entityUuid, &draftId, &rawProps, &decisionRange, &txRange); err != nil {
			return nil, graphstoreerr.Wrap("facade.GetEntities", err)
		}

		key := webId + "/" + entityUuid + "/" + draftId
		ed, seen := byKey[key]
		if !seen {
			id, err := buildEntityId(webId, entityUuid, draftId)
			if err != nil {
				return nil, graphstoreerr.Wrap("facade.GetEntities", err)
			}
			var props knowledge.Properties
			if err := json.Unmarshal(rawProps, &props); err != nil {
				return nil, graphstoreerr.Wrap("facade.GetEntities", err)
			}
			decisionTime, err := rangeToInterval(decisionRange)
			if err != nil {
				return nil, graphstoreerr.Wrap("facade.GetEntities", err)
			}
			transactionTime, err := rangeToInterval(txRange)
			if err != nil {
				return nil, graphstoreerr.Wrap("facade.GetEntities", err)
			}
			ed = &knowledge.Edition{
				EntityId:        id,
				Properties:      props,
				DecisionTime:    decisionTime,
				TransactionTime: transactionTime,
			}
			byKey[key] = ed
			order = append(order, key)
		}

		types, err := svc.store.EntityTypesOf(ctx, ed.EntityId)
		if err != nil {
			return nil, graphstoreerr.Wrap("facade.GetEntities", err)
		}
		ed.Types = types
	}
	if err := rows.Err(); err != nil {
		return nil, graphstoreerr.Wrap("facade.GetEntities", err)
	}

	out := make([]knowledge.Edition, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}

func buildEntityId(webId, entityUuid, draftId string) (identifier.EntityId, error) {
	web, err := identifier.ParseWebId(webId)
	if err != nil {
		return identifier.EntityId{}, err
	}
	u, err := identifier.ParseEntityUuid(entityUuid)
	if err != nil {
		return identifier.EntityId{}, err
	}
	id := identifier.EntityId{WebId: web, Uuid: u}
	if d, err := identifier.ParseDraftId(draftId); err == nil && draftId != "00000000-0000-0000-0000-000000000000" {
		id.DraftId = &d
	}
	return id, nil
}

// rangeToInterval converts a tstzrange scanned off the entities view back
// into a temporal.Interval. A non-finite (unbounded) side round-trips to
// temporal.UnboundedBound; Postgres always reports a tstzrange's upper bound
// as exclusive and its lower bound as inclusive once normalised, matching
// the canonical form temporal.New enforces.
func rangeToInterval(r pgtype.Range[pgtype.Timestamptz]) (temporal.Interval, error) {
	start := temporal.UnboundedBound()
	if r.LowerType != pgtype.Unbounded && r.Lower.Valid {
		start = temporal.InclusiveBound(temporal.TimestampFromTime(r.Lower.Time))
	}
	end := temporal.UnboundedBound()
	if r.UpperType != pgtype.Unbounded && r.Upper.Valid {
		end = temporal.ExclusiveBound(temporal.TimestampFromTime(r.Upper.Time))
	}
	return temporal.New(start, end)
}
