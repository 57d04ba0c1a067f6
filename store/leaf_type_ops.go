package store

import (
	"context"

	"graphstore.dev/db"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/ontology"
	"graphstore.dev/temporal"
)

// leafTypeTable names the two ontology record kinds whose closure is empty
// (no inherits_from / constrains_on edges): DataType and PropertyType share
// identical create/update/archive shape, differing only in table name.
type leafTypeTable string

const (
	dataTypesTable     leafTypeTable = "data_types"
	propertyTypesTable leafTypeTable = "property_types"
)

func (s *Store) latestLeafVersion(ctx context.Context, table leafTypeTable, base identifier.BaseUrl) (uint32, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT version FROM `+string(table)+` WHERE base_url = $1 AND upper_inf(tx_range)
	`, base.String())
	var version uint32
	if err := row.Scan(&version); err != nil {
		return 0, false, nil
	}
	return version, true, nil
}

func (s *Store) createLeafType(ctx context.Context, op string, table leafTypeTable, actor identifier.ActorId, e *ontology.Edition, schema []byte, title string) error {
	latest, hasLatest, err := s.latestLeafVersion(ctx, table, e.RecordId.Base)
	if err != nil {
		return graphstoreerr.Wrap(op, err)
	}
	if hasLatest {
		if e.RecordId.Version != latest+1 {
			return graphstoreerr.Invalid(op, errVersionNotSequential(e.RecordId))
		}
	} else if e.RecordId.Version != 1 {
		return graphstoreerr.Invalid(op, errVersionNotSequential(e.RecordId))
	}

	now := temporal.Now()
	e.Provenance.CreatedById = actor
	e.Transaction = temporal.FromNowUnbounded(now)

	err = s.pool.Exec(ctx, `
		INSERT INTO `+string(table)+` (base_url, version, schema, title, owner_web_id, created_by, tx_range)
		VALUES ($1, $2, $3, $4, $5, $6, tstzrange($7, NULL, '[)'))
	`, e.RecordId.Base.String(), e.RecordId.Version, schema, title, ownerWebIDOrNil(e.Ownership), actor.String(), now.Time())
	if err != nil {
		return graphstoreerr.Wrap(op, err)
	}
	return nil
}

func (s *Store) updateLeafType(ctx context.Context, op string, table leafTypeTable, actor identifier.ActorId, e *ontology.Edition, schema []byte, title string) error {
	latest, hasLatest, err := s.latestLeafVersion(ctx, table, e.RecordId.Base)
	if err != nil {
		return graphstoreerr.Wrap(op, err)
	}
	if !hasLatest {
		return graphstoreerr.NotFound(op, e.RecordId.Base.String())
	}
	if e.RecordId.Version != latest+1 {
		return graphstoreerr.Invalid(op, errVersionNotSequential(e.RecordId))
	}

	now := temporal.Now()
	e.Provenance.CreatedById = actor
	e.Transaction = temporal.FromNowUnbounded(now)

	return s.pool.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		if err := tx.Exec(ctx, `
			UPDATE `+string(table)+` SET tx_range = tstzrange(lower(tx_range), $3, '[)')
			WHERE base_url = $1 AND version = $2 AND upper_inf(tx_range)
		`, e.RecordId.Base.String(), latest, now.Time()); err != nil {
			return err
		}
		return tx.Exec(ctx, `
			INSERT INTO `+string(table)+` (base_url, version, schema, title, owner_web_id, created_by, tx_range)
			VALUES ($1, $2, $3, $4, $5, $6, tstzrange($7, NULL, '[)'))
		`, e.RecordId.Base.String(), e.RecordId.Version, schema, title, ownerWebIDOrNil(e.Ownership), actor.String(), now.Time())
	})
}

func (s *Store) archiveLeafType(ctx context.Context, op string, table leafTypeTable, actor identifier.ActorId, v identifier.VersionedUrl) error {
	now := temporal.Now()
	res := s.pool.QueryRow(ctx, `
		UPDATE `+string(table)+` SET tx_range = tstzrange(lower(tx_range), $3, '[)'), archived_by = $4
		WHERE base_url = $1 AND version = $2 AND upper_inf(tx_range)
		RETURNING base_url
	`, v.Base.String(), v.Version, now.Time(), actor.String())
	var returned string
	if err := res.Scan(&returned); err != nil {
		return graphstoreerr.NotFound(op, v.String())
	}
	return nil
}

// CreateDataType inserts the first edition of a new DataType, or the next
// version of an existing one.
func (s *Store) CreateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error {
	return s.createLeafType(ctx, "store.CreateDataType", dataTypesTable, actor, &dt.Edition, dt.Schema, dt.Title)
}

// UpdateDataType closes the previous edition at now and inserts dt at
// version+1.
func (s *Store) UpdateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error {
	return s.updateLeafType(ctx, "store.UpdateDataType", dataTypesTable, actor, &dt.Edition, dt.Schema, dt.Title)
}

// ArchiveDataType closes the currently-live edition at now.
func (s *Store) ArchiveDataType(ctx context.Context, actor identifier.ActorId, v identifier.VersionedUrl) error {
	return s.archiveLeafType(ctx, "store.ArchiveDataType", dataTypesTable, actor, v)
}

// CreatePropertyType inserts the first edition of a new PropertyType, or
// the next version of an existing one.
func (s *Store) CreatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error {
	return s.createLeafType(ctx, "store.CreatePropertyType", propertyTypesTable, actor, &pt.Edition, pt.Schema, pt.Title)
}

// UpdatePropertyType closes the previous edition at now and inserts pt at
// version+1.
func (s *Store) UpdatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error {
	return s.updateLeafType(ctx, "store.UpdatePropertyType", propertyTypesTable, actor, &pt.Edition, pt.Schema, pt.Title)
}

// ArchivePropertyType closes the currently-live edition at now.
func (s *Store) ArchivePropertyType(ctx context.Context, actor identifier.ActorId, v identifier.VersionedUrl) error {
	return s.archiveLeafType(ctx, "store.ArchivePropertyType", propertyTypesTable, actor, v)
}
