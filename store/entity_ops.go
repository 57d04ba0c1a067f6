package store

import (
	"context"
	"encoding/json"

	"graphstore.dev/db"
	"graphstore.dev/filter"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/ontology"
	"graphstore.dev/temporal"
)

// Diagnostic is one entry in the structured list ValidateEntity returns: a
// path-addressed code/message pair rather than a flat string, so a caller
// can point a user at the offending field.
type Diagnostic struct {
	Path    filter.Path
	Code    string
	Message string
}

func (d Diagnostic) toErr() graphstoreerr.Diagnostic {
	return graphstoreerr.Diagnostic{Path: d.Path.String(), Code: d.Code, Message: d.Message}
}

// CreateEntity inserts a new EntityId and its first Edition. All referenced
// EntityTypes must exist at now; if ed carries link endpoints, both must
// already exist. The decision interval defaults to [now, +inf) when ed
// leaves it zero-valued; the transaction interval is always [now, +inf).
func (s *Store) CreateEntity(ctx context.Context, actor identifier.ActorId, ed *knowledge.Edition) error {
	if err := ed.Validate(); err != nil {
		return graphstoreerr.Invalid("store.CreateEntity", err)
	}
	diags := s.checkEntityTypesAndLinks(ctx, ed)
	if len(diags) > 0 {
		return graphstoreerr.Invalidated("store.CreateEntity", ed.EntityId.String(), toErrDiagnostics(diags))
	}

	now := temporal.Now()
	ed.Provenance.CreatedById = actor
	ed.TransactionTime = temporal.FromNowUnbounded(now)
	if ed.DecisionTime == (temporal.Interval{}) {
		ed.DecisionTime = temporal.FromNowUnbounded(now)
	}

	propsJSON, err := json.Marshal(ed.Properties)
	if err != nil {
		return graphstoreerr.Invalid("store.CreateEntity", err)
	}
	metaJSON, err := json.Marshal(ed.Metadata)
	if err != nil {
		return graphstoreerr.Invalid("store.CreateEntity", err)
	}

	err = s.pool.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		if err := tx.Exec(ctx, `
			INSERT INTO entity_ids (web_id, entity_uuid, draft_id)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, ed.EntityId.WebId.String(), ed.EntityId.Uuid.String(), draftIDOrNil(ed.EntityId)); err != nil {
			return err
		}
		if err := insertEntityEdition(ctx, tx, ed, propsJSON, metaJSON); err != nil {
			return err
		}
		return insertEntityIsOfType(ctx, tx, ed)
	})
	if err != nil {
		return graphstoreerr.Wrap("store.CreateEntity", err)
	}
	return nil
}

// PatchEntity closes the entity's previously live edition on axis and
// inserts a new edition with patch merged over the current property tree
// and newTypes replacing the type set (pass the existing types unchanged to
// leave type membership untouched).
func (s *Store) PatchEntity(ctx context.Context, actor identifier.ActorId, id identifier.EntityId, axis temporal.Axis, patch knowledge.Properties, newTypes []identifier.VersionedUrl) error {
	current, ok, err := s.loadLatestEdition(ctx, id)
	if err != nil {
		return graphstoreerr.Wrap("store.PatchEntity", err)
	}
	if !ok {
		return graphstoreerr.NotFound("store.PatchEntity", id.String())
	}

	next := current
	next.Properties = current.Properties.Merge(patch)
	if len(newTypes) > 0 {
		next.Types = newTypes
	}
	next.Provenance.CreatedById = actor

	diags := s.checkEntityTypesAndLinks(ctx, &next)
	if len(diags) > 0 {
		return graphstoreerr.Invalidated("store.PatchEntity", id.String(), toErrDiagnostics(diags))
	}

	now := temporal.Now()
	switch axis {
	case temporal.TransactionTime:
		next.TransactionTime = temporal.FromNowUnbounded(now)
	case temporal.DecisionTime:
		next.DecisionTime = temporal.FromNowUnbounded(now)
		next.TransactionTime = temporal.FromNowUnbounded(now)
	}
	if err := next.Validate(); err != nil {
		return graphstoreerr.Invalid("store.PatchEntity", err)
	}

	propsJSON, err := json.Marshal(next.Properties)
	if err != nil {
		return graphstoreerr.Invalid("store.PatchEntity", err)
	}
	metaJSON, err := json.Marshal(next.Metadata)
	if err != nil {
		return graphstoreerr.Invalid("store.PatchEntity", err)
	}

	err = s.pool.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		if err := tx.Exec(ctx, `
			UPDATE entity_editions SET tx_range = tstzrange(lower(tx_range), $4, '[)')
			WHERE web_id = $1 AND entity_uuid = $2 AND draft_id = $3 AND upper_inf(tx_range)
		`, id.WebId.String(), id.Uuid.String(), draftIDOrNil(id), now.Time()); err != nil {
			return err
		}
		if err := tx.Exec(ctx, `
			UPDATE entity_is_of_type SET tx_range = tstzrange(lower(tx_range), $4, '[)')
			WHERE web_id = $1 AND entity_uuid = $2 AND draft_id = $3 AND upper_inf(tx_range)
		`, id.WebId.String(), id.Uuid.String(), draftIDOrNil(id), now.Time()); err != nil {
			return err
		}
		if err := insertEntityEdition(ctx, tx, &next, propsJSON, metaJSON); err != nil {
			return err
		}
		return insertEntityIsOfType(ctx, tx, &next)
	})
	if err != nil {
		return graphstoreerr.Wrap("store.PatchEntity", err)
	}
	return nil
}

// ValidateEntity runs the same referential and type-existence checks
// CreateEntity/PatchEntity enforce, without writing anything, returning the
// full list of violations found rather than stopping at the first.
func (s *Store) ValidateEntity(ctx context.Context, ed *knowledge.Edition) []Diagnostic {
	var diags []Diagnostic
	if err := ed.Validate(); err != nil {
		diags = append(diags, Diagnostic{Code: "MalformedEdition", Message: err.Error()})
	}
	diags = append(diags, s.checkEntityTypesAndLinks(ctx, ed)...)
	return diags
}

func (s *Store) checkEntityTypesAndLinks(ctx context.Context, ed *knowledge.Edition) []Diagnostic {
	var diags []Diagnostic
	sawLinkType := false
	for _, t := range ed.Types {
		et, ok := s.ResolveEntityType(t)
		if !ok {
			diags = append(diags, Diagnostic{
				Path:    filter.Path{Kind: filter.PathType, Type: &filter.EntityTypePath{Kind: filter.EntityTypeBaseUrl}},
				Code:    "MissingEntityType",
				Message: "entity type " + t.String() + " does not exist at the current transaction time",
			})
			continue
		}
		isLink, err := ontology.InheritsFromLink(s, t)
		if err != nil {
			diags = append(diags, Diagnostic{Code: "Cycle", Message: err.Error()})
			continue
		}
		if isLink {
			sawLinkType = true
		}
		_ = et
	}

	if ed.Link == nil && sawLinkType {
		diags = append(diags, Diagnostic{
			Path:    filter.Path{Kind: filter.PathType},
			Code:    "MissingLinkEndpoints",
			Message: "entity type inherits from Link but no left/right endpoints were supplied",
		})
	}
	if ed.Link != nil {
		if !s.entityExists(ctx, ed.Link.LeftEntityId) {
			diags = append(diags, Diagnostic{
				Path:    filter.Path{Kind: filter.PathLeftEntityUuid},
				Code:    "MissingEntity",
				Message: "left endpoint " + ed.Link.LeftEntityId.String() + " does not exist",
			})
		}
		if !s.entityExists(ctx, ed.Link.RightEntityId) {
			diags = append(diags, Diagnostic{
				Path:    filter.Path{Kind: filter.PathRightEntityUuid},
				Code:    "MissingEntity",
				Message: "right endpoint " + ed.Link.RightEntityId.String() + " does not exist",
			})
		}
	}
	return diags
}

func (s *Store) entityExists(ctx context.Context, id identifier.EntityId) bool {
	row := s.pool.QueryRow(ctx, `
		SELECT 1 FROM entity_editions
		WHERE web_id = $1 AND entity_uuid = $2 AND draft_id = $3 AND upper_inf(tx_range)
	`, id.WebId.String(), id.Uuid.String(), draftIDOrNil(id))
	var one int
	return row.Scan(&one) == nil
}

func (s *Store) loadLatestEdition(ctx context.Context, id identifier.EntityId) (knowledge.Edition, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT properties, metadata, left_entity_uuid::text, left_web_id::text, right_entity_uuid::text, right_web_id::text
		FROM entity_editions
		WHERE web_id = $1 AND entity_uuid = $2 AND draft_id = $3 AND upper_inf(tx_range)
	`, id.WebId.String(), id.Uuid.String(), draftIDOrNil(id))

	var (
		rawProps, rawMeta                               []byte
		leftUUID, leftWeb, rightUUID, rightWeb *string
	)
	if err := row.Scan(&rawProps, &rawMeta, &leftUUID, &leftWeb, &rightUUID, &rightWeb); err != nil {
		return knowledge.Edition{}, false, nil
	}

	ed := knowledge.Edition{EntityId: id}
	if err := json.Unmarshal(rawProps, &ed.Properties); err != nil {
		return knowledge.Edition{}, false, err
	}
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &ed.Metadata); err != nil {
			return knowledge.Edition{}, false, err
		}
	}
	if leftUUID != nil && leftWeb != nil {
		link, err := parseLinkEndpoints(*leftWeb, *leftUUID, derefOr(rightWeb, ""), derefOr(rightUUID, ""))
		if err == nil {
			ed.Link = &link
		}
	}

	types, err := s.loadEntityIsOfType(ctx, id)
	if err != nil {
		return knowledge.Edition{}, false, err
	}
	ed.Types = types
	return ed, true, nil
}

// LoadEdition returns the currently live edition of id, the form the
// subgraph resolver uses to follow HasLeftEntity/HasRightEntity edges off a
// link entity without duplicating the scan logic here.
func (s *Store) LoadEdition(ctx context.Context, id identifier.EntityId) (knowledge.Edition, bool, error) {
	return s.loadLatestEdition(ctx, id)
}

// EntityTypesOf returns the EntityTypes id currently claims membership in,
// the edge set HasType traversal follows.
func (s *Store) EntityTypesOf(ctx context.Context, id identifier.EntityId) ([]identifier.VersionedUrl, error) {
	return s.loadEntityIsOfType(ctx, id)
}

// OutgoingLinkEntityIds returns the identities of the link entities whose
// left endpoint is id, i.e. the link entities id is the source of.
func (s *Store) OutgoingLinkEntityIds(ctx context.Context, id identifier.EntityId) ([]identifier.EntityId, error) {
	return s.linkEntityIdsByEndpoint(ctx, "left_web_id", "left_entity_uuid", id)
}

// IncomingLinkEntityIds returns the identities of the link entities whose
// right endpoint is id, i.e. the link entities id is the destination of.
func (s *Store) IncomingLinkEntityIds(ctx context.Context, id identifier.EntityId) ([]identifier.EntityId, error) {
	return s.linkEntityIdsByEndpoint(ctx, "right_web_id", "right_entity_uuid", id)
}

func (s *Store) linkEntityIdsByEndpoint(ctx context.Context, webCol, uuidCol string, id identifier.EntityId) ([]identifier.EntityId, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT web_id::text, entity_uuid::text, draft_id::text FROM entity_editions
		WHERE `+webCol+` = $1 AND `+uuidCol+` = $2 AND upper_inf(tx_range)
	`, id.WebId.String(), id.Uuid.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identifier.EntityId
	zeroDraft := "00000000-0000-0000-0000-000000000000"
	for rows.Next() {
		var web, uuidStr, draft string
		if err := rows.Scan(&web, &uuidStr, &draft); err != nil {
			return nil, err
		}
		linkID, err := parseEntityIdParts(web, uuidStr, draft, zeroDraft)
		if err != nil {
			return nil, err
		}
		out = append(out, linkID)
	}
	return out, rows.Err()
}

func parseEntityIdParts(web, uuidStr, draft, zeroDraft string) (identifier.EntityId, error) {
	w, err := identifier.ParseWebId(web)
	if err != nil {
		return identifier.EntityId{}, err
	}
	u, err := identifier.ParseEntityUuid(uuidStr)
	if err != nil {
		return identifier.EntityId{}, err
	}
	id := identifier.EntityId{WebId: w, Uuid: u}
	if draft != zeroDraft {
		d, err := identifier.ParseDraftId(draft)
		if err != nil {
			return identifier.EntityId{}, err
		}
		id.DraftId = &d
	}
	return id, nil
}

func (s *Store) loadEntityIsOfType(ctx context.Context, id identifier.EntityId) ([]identifier.VersionedUrl, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT type_base_url, type_version FROM entity_is_of_type
		WHERE web_id = $1 AND entity_uuid = $2 AND draft_id = $3 AND upper_inf(tx_range)
	`, id.WebId.String(), id.Uuid.String(), draftIDOrNil(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identifier.VersionedUrl
	for rows.Next() {
		var baseURL string
		var version uint32
		if err := rows.Scan(&baseURL, &version); err != nil {
			return nil, err
		}
		base, err := identifier.ParseBaseUrl(baseURL)
		if err != nil {
			return nil, err
		}
		out = append(out, identifier.NewVersionedUrl(base, version))
	}
	return out, rows.Err()
}

func insertEntityEdition(ctx context.Context, tx *db.Tx, ed *knowledge.Edition, propsJSON, metaJSON []byte) error {
	var leftWeb, leftUUID, rightWeb, rightUUID any
	if ed.Link != nil {
		leftWeb, leftUUID = ed.Link.LeftEntityId.WebId.String(), ed.Link.LeftEntityId.Uuid.String()
		rightWeb, rightUUID = ed.Link.RightEntityId.WebId.String(), ed.Link.RightEntityId.Uuid.String()
	}
	return tx.Exec(ctx, `
		INSERT INTO entity_editions (
			web_id, entity_uuid, draft_id, tx_range, decision_range, properties, metadata, created_by,
			left_web_id, left_entity_uuid, right_web_id, right_entity_uuid
		) VALUES (
			$1, $2, $3, tstzrange($4, NULL, '[)'), tstzrange($5, NULL, '[)'), $6, $7, $8, $9, $10, $11, $12
		)
	`, ed.EntityId.WebId.String(), ed.EntityId.Uuid.String(), draftIDOrNil(ed.EntityId),
		ed.TransactionTime.Start.At.Time(), ed.DecisionTime.Start.At.Time(), propsJSON, metaJSON, ed.Provenance.CreatedById.String(),
		leftWeb, leftUUID, rightWeb, rightUUID)
}

func insertEntityIsOfType(ctx context.Context, tx *db.Tx, ed *knowledge.Edition) error {
	for _, t := range ed.Types {
		if err := tx.Exec(ctx, `
			INSERT INTO entity_is_of_type (web_id, entity_uuid, draft_id, tx_range, type_base_url, type_version)
			VALUES ($1, $2, $3, tstzrange($4, NULL, '[)'), $5, $6)
		`, ed.EntityId.WebId.String(), ed.EntityId.Uuid.String(), draftIDOrNil(ed.EntityId), ed.TransactionTime.Start.At.Time(), t.Base.String(), t.Version); err != nil {
			return err
		}
	}
	return nil
}

func draftIDOrNil(id identifier.EntityId) string {
	if id.DraftId == nil {
		return "00000000-0000-0000-0000-000000000000"
	}
	return id.DraftId.String()
}

func parseLinkEndpoints(leftWeb, leftUUID, rightWeb, rightUUID string) (knowledge.LinkData, error) {
	leftW, err := identifier.ParseWebId(leftWeb)
	if err != nil {
		return knowledge.LinkData{}, err
	}
	leftU, err := identifier.ParseEntityUuid(leftUUID)
	if err != nil {
		return knowledge.LinkData{}, err
	}
	left := identifier.EntityId{WebId: leftW, Uuid: leftU}

	var right identifier.EntityId
	if rightWeb != "" && rightUUID != "" {
		rightW, err := identifier.ParseWebId(rightWeb)
		if err != nil {
			return knowledge.LinkData{}, err
		}
		rightU, err := identifier.ParseEntityUuid(rightUUID)
		if err != nil {
			return knowledge.LinkData{}, err
		}
		right = identifier.EntityId{WebId: rightW, Uuid: rightU}
	}
	return knowledge.LinkData{LeftEntityId: left, RightEntityId: right}, nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func toErrDiagnostics(diags []Diagnostic) []graphstoreerr.Diagnostic {
	out := make([]graphstoreerr.Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = d.toErr()
	}
	return out
}
