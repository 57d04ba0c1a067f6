package store

import (
	"context"
	"encoding/json"

	"graphstore.dev/db"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/ontology"
	"graphstore.dev/temporal"
)

type scannable interface {
	Scan(dest ...any) error
}

func scanEntityType(row scannable) (*ontology.EntityType, error) {
	var (
		baseURL, title         string
		version                uint32
		rawSchema              []byte
		abstract               bool
		ownerWebID, createdBy  *string
		archivedBy             *string
	)
	if err := row.Scan(&baseURL, &version, &rawSchema, &title, &abstract, &ownerWebID, &createdBy, &archivedBy); err != nil {
		return nil, err
	}
	base, err := identifier.ParseBaseUrl(baseURL)
	if err != nil {
		return nil, err
	}
	et := &ontology.EntityType{
		Edition: ontology.Edition{
			RecordId:    identifier.NewVersionedUrl(base, version),
			Transaction: temporal.MustNew(temporal.InclusiveBound(temporal.Now()), temporal.UnboundedBound()),
		},
		Schema:   json.RawMessage(rawSchema),
		Title:    title,
		Abstract: abstract,
	}
	if ownerWebID != nil {
		web, err := identifier.ParseWebId(*ownerWebID)
		if err == nil {
			et.Ownership = ontology.OwnedBy(web)
		}
	}
	if createdBy != nil {
		actor, err := identifier.ParseActorId(*createdBy)
		if err == nil {
			et.Provenance.CreatedById = actor
		}
	}
	return et, nil
}

// CreateEntityType inserts the first edition of a new EntityType, or the
// next version of an existing one, and records its inheritance/constraint
// closure in the join tables. BaseUrl must not already have this version.
func (s *Store) CreateEntityType(ctx context.Context, actor identifier.ActorId, et *ontology.EntityType) error {
	if latest, ok := s.latestEntityTypeCached(et.RecordId.Base); ok {
		if !latest.RecordId.Next().Equal(et.RecordId) {
			return graphstoreerr.Invalid("store.CreateEntityType", errVersionNotSequential(et.RecordId))
		}
	} else if et.RecordId.Version != 1 {
		return graphstoreerr.Invalid("store.CreateEntityType", errVersionNotSequential(et.RecordId))
	}

	now := temporal.Now()
	et.Provenance.CreatedById = actor
	et.Transaction = temporal.FromNowUnbounded(now)

	err := s.pool.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		if err := tx.Exec(ctx, `
			INSERT INTO entity_types (base_url, version, schema, title, abstract, owner_web_id, created_by, tx_range)
			VALUES ($1, $2, $3, $4, $5, $6, $7, tstzrange($8, NULL, '[)'))
		`, et.RecordId.Base.String(), et.RecordId.Version, []byte(et.Schema), et.Title, et.Abstract, ownerWebIDOrNil(et.Ownership), actor.String(), now.Time()); err != nil {
			return err
		}
		return insertEntityTypeClosure(ctx, tx, et)
	})
	if err != nil {
		return graphstoreerr.Wrap("store.CreateEntityType", err)
	}
	s.putEntityType(et)
	return nil
}

// UpdateEntityType closes the previous edition's transaction interval at
// now and inserts a new row at version+1.
func (s *Store) UpdateEntityType(ctx context.Context, actor identifier.ActorId, base identifier.BaseUrl, next *ontology.EntityType) error {
	current, ok := s.latestEntityTypeCached(base)
	if !ok {
		return graphstoreerr.NotFound("store.UpdateEntityType", base.String())
	}
	if next.RecordId.Version != current.RecordId.Version+1 {
		return graphstoreerr.Invalid("store.UpdateEntityType", errVersionNotSequential(next.RecordId))
	}

	now := temporal.Now()
	err := s.pool.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		if err := closeEntityTypeEdition(ctx, tx, base, current.RecordId.Version, now); err != nil {
			return err
		}
		next.Provenance.CreatedById = actor
		next.Transaction = temporal.FromNowUnbounded(now)
		if err := tx.Exec(ctx, `
			INSERT INTO entity_types (base_url, version, schema, title, abstract, owner_web_id, created_by, tx_range)
			VALUES ($1, $2, $3, $4, $5, $6, $7, tstzrange($8, NULL, '[)'))
		`, base.String(), next.RecordId.Version, []byte(next.Schema), next.Title, next.Abstract, ownerWebIDOrNil(next.Ownership), actor.String(), now.Time()); err != nil {
			return err
		}
		return insertEntityTypeClosure(ctx, tx, next)
	})
	if err != nil {
		return graphstoreerr.Wrap("store.UpdateEntityType", err)
	}
	s.putEntityType(next)
	return nil
}

// ArchiveEntityType closes the currently-live edition's transaction
// interval at now; no replacement row is inserted.
func (s *Store) ArchiveEntityType(ctx context.Context, actor identifier.ActorId, v identifier.VersionedUrl) error {
	_, ok := s.ResolveEntityType(v)
	if !ok {
		return graphstoreerr.NotFound("store.ArchiveEntityType", v.String())
	}
	now := temporal.Now()
	err := s.pool.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		return closeEntityTypeEditionArchived(ctx, tx, v.Base, v.Version, now, actor)
	})
	if err != nil {
		return graphstoreerr.Wrap("store.ArchiveEntityType", err)
	}
	s.dropEntityType(v)
	return nil
}

func (s *Store) latestEntityTypeCached(base identifier.BaseUrl) (*ontology.EntityType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *ontology.EntityType
	for _, et := range s.types {
		if et.RecordId.Base.Equal(base) && (best == nil || et.RecordId.Version > best.RecordId.Version) {
			best = et
		}
	}
	return best, best != nil
}

func insertEntityTypeClosure(ctx context.Context, tx *db.Tx, et *ontology.EntityType) error {
	inserts := []struct {
		table   string
		targets []identifier.VersionedUrl
	}{
		{"entity_type_inherits_from", et.InheritsFrom},
		{"entity_type_constrains_properties_on", et.ConstrainsPropertiesOn},
		{"entity_type_constrains_links_on", et.ConstrainsLinksOn},
		{"entity_type_constrains_link_destinations_on", et.ConstrainsLinkDestinationsOn},
	}
	for _, ins := range inserts {
		for _, target := range ins.targets {
			if err := tx.Exec(ctx, `
				INSERT INTO `+ins.table+` (base_url, version, target_base_url, target_version)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT DO NOTHING
			`, et.RecordId.Base.String(), et.RecordId.Version, target.Base.String(), target.Version); err != nil {
				return err
			}
		}
	}
	return nil
}

func closeEntityTypeEdition(ctx context.Context, tx *db.Tx, base identifier.BaseUrl, version uint32, now temporal.Timestamp) error {
	return tx.Exec(ctx, `
		UPDATE entity_types SET tx_range = tstzrange(lower(tx_range), $3, '[)')
		WHERE base_url = $1 AND version = $2 AND upper_inf(tx_range)
	`, base.String(), version, now.Time())
}

func closeEntityTypeEditionArchived(ctx context.Context, tx *db.Tx, base identifier.BaseUrl, version uint32, now temporal.Timestamp, actor identifier.ActorId) error {
	return tx.Exec(ctx, `
		UPDATE entity_types SET tx_range = tstzrange(lower(tx_range), $3, '[)'), archived_by = $4
		WHERE base_url = $1 AND version = $2 AND upper_inf(tx_range)
	`, base.String(), version, now.Time(), actor.String())
}

func ownerWebIDOrNil(o ontology.Ownership) any {
	if o.Kind == ontology.Owned && !o.WebId.IsZero() {
		return o.WebId.String()
	}
	return nil
}

type versionNotSequentialError struct {
	v identifier.VersionedUrl
}

func (e *versionNotSequentialError) Error() string {
	return "store: " + e.v.String() + " does not follow the current latest version"
}

func errVersionNotSequential(v identifier.VersionedUrl) error {
	return &versionNotSequentialError{v: v}
}
