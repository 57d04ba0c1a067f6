package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"graphstore.dev/db"
	"graphstore.dev/graphstoreerr"
)

// Dumper produces a snapshot stream from a live store. It reads directly
// off the backend pools rather than through entityStore/principalStore,
// since dumping needs to enumerate every row of a table and neither
// store's public API exposes a bulk listing operation (each exists to
// serve one entity/type at a time). It is the inverse of Restorer, closing
// the dump ∘ restore round trip.
type Dumper struct {
	storePool     *db.Pool
	principalPool *db.Pool
}

// NewDumper builds a Dumper. storePool and principalPool are commonly the
// same *db.Pool; they are accepted separately because nothing in this
// package requires the entity and principal schemas to share a backend.
func NewDumper(storePool, principalPool *db.Pool) *Dumper {
	return &Dumper{storePool: storePool, principalPool: principalPool}
}

type lineWriter struct {
	w   io.Writer
	err error
}

func (lw *lineWriter) write(kind Kind, payload any) {
	if lw.err != nil {
		return
	}
	fields, err := json.Marshal(payload)
	if err != nil {
		lw.err = fmt.Errorf("snapshot: marshaling %s record: %w", kind, err)
		return
	}
	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(fields, &asMap); err != nil {
		lw.err = fmt.Errorf("snapshot: marshaling %s record: %w", kind, err)
		return
	}
	kindJSON, _ := json.Marshal(kind)
	asMap["kind"] = kindJSON

	line, err := json.Marshal(asMap)
	if err != nil {
		lw.err = fmt.Errorf("snapshot: marshaling %s record: %w", kind, err)
		return
	}
	line = append(line, '\n')
	if _, err := lw.w.Write(line); err != nil {
		lw.err = err
	}
}

// Dump writes every currently-live ontology type, entity edition, and
// principal/role record to w as line-delimited JSON. Archived editions and
// superseded versions are not included, matching "byte-identical query
// results ... at the dump's transaction_time" (only the live state needs to
// round-trip; history is reconstructed by replaying the store's own write
// path again, not by re-playing a dump of it).
func (d *Dumper) Dump(ctx context.Context, w io.Writer) error {
	lw := &lineWriter{w: w}

	if err := d.dumpDataTypes(ctx, lw); err != nil {
		return err
	}
	if err := d.dumpPropertyTypes(ctx, lw); err != nil {
		return err
	}
	if err := d.dumpEntityTypes(ctx, lw); err != nil {
		return err
	}
	if err := d.dumpEntities(ctx, lw); err != nil {
		return err
	}
	if err := d.dumpPrincipals(ctx, lw); err != nil {
		return err
	}
	if err := d.dumpRoles(ctx, lw); err != nil {
		return err
	}
	if lw.err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", lw.err)
	}
	return nil
}

func (d *Dumper) dumpDataTypes(ctx context.Context, lw *lineWriter) error {
	rows, err := d.storePool.Query(ctx, `
		SELECT base_url, version, schema, title, owner_web_id
		FROM data_types WHERE upper_inf(tx_range)
	`)
	if err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec DataTypeRecord
		var owner *string
		var schema []byte
		if err := rows.Scan(&rec.BaseUrl, &rec.Version, &schema, &rec.Title, &owner); err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		rec.Schema = schema
		if owner != nil {
			rec.OwnerWebId = *owner
		}
		lw.write(KindDataType, rec)
	}
	return rows.Err()
}

func (d *Dumper) dumpPropertyTypes(ctx context.Context, lw *lineWriter) error {
	rows, err := d.storePool.Query(ctx, `
		SELECT base_url, version, schema, title, owner_web_id
		FROM property_types WHERE upper_inf(tx_range)
	`)
	if err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec PropertyTypeRecord
		var owner *string
		var schema []byte
		if err := rows.Scan(&rec.BaseUrl, &rec.Version, &schema, &rec.Title, &owner); err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		rec.Schema = schema
		if owner != nil {
			rec.OwnerWebId = *owner
		}
		lw.write(KindPropertyType, rec)
	}
	return rows.Err()
}

func (d *Dumper) dumpEntityTypes(ctx context.Context, lw *lineWriter) error {
	rows, err := d.storePool.Query(ctx, `
		SELECT base_url, version, schema, title, abstract, owner_web_id
		FROM entity_types WHERE upper_inf(tx_range)
	`)
	if err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec EntityTypeRecord
		var owner *string
		var schema []byte
		if err := rows.Scan(&rec.BaseUrl, &rec.Version, &schema, &rec.Title, &rec.Abstract, &owner); err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		rec.Schema = schema
		if owner != nil {
			rec.OwnerWebId = *owner
		}
		rec.InheritsFrom = d.targets(ctx, "entity_type_inherits_from", rec.BaseUrl, rec.Version)
		rec.ConstrainsPropertiesOn = d.targets(ctx, "entity_type_constrains_properties_on", rec.BaseUrl, rec.Version)
		rec.ConstrainsLinksOn = d.targets(ctx, "entity_type_constrains_links_on", rec.BaseUrl, rec.Version)
		rec.ConstrainsLinkDestinationsOn = d.targets(ctx, "entity_type_constrains_link_destinations_on", rec.BaseUrl, rec.Version)
		lw.write(KindEntityType, rec)
	}
	return rows.Err()
}

// targets reads one closure join table's target (base_url, version) pairs
// for one source edition, formatted back into versioned-url strings. Best
// effort: a query error here degrades to an empty list rather than
// aborting the whole dump. The restorer rebuilds the join tables from these
// lists only, so such an edition is restored without those references.
func (d *Dumper) targets(ctx context.Context, table, baseUrl string, version uint32) []string {
	rows, err := d.storePool.Query(ctx, `
		SELECT target_base_url, target_version FROM `+table+` WHERE base_url = $1 AND version = $2
	`, baseUrl, version)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tb string
		var tv uint32
		if err := rows.Scan(&tb, &tv); err != nil {
			continue
		}
		out = append(out, fmt.Sprintf("%sv/%d", tb, tv))
	}
	return out
}

func (d *Dumper) dumpEntities(ctx context.Context, lw *lineWriter) error {
	rows, err := d.storePool.Query(ctx, `
		SELECT e.web_id, e.entity_uuid, e.draft_id, e.properties,
		       e.left_web_id, e.left_entity_uuid, e.left_draft_id,
		       e.right_web_id, e.right_entity_uuid, e.right_draft_id
		FROM entity_editions e WHERE upper_inf(e.tx_range)
	`)
	if err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}
	defer rows.Close()

	type row struct {
		webId, uuid, draftId                       string
		properties                                  []byte
		leftWeb, leftUuid, leftDraft                *string
		rightWeb, rightUuid, rightDraft             *string
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.webId, &r.uuid, &r.draftId, &r.properties,
			&r.leftWeb, &r.leftUuid, &r.leftDraft, &r.rightWeb, &r.rightUuid, &r.rightDraft); err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		buffered = append(buffered, r)
	}
	if err := rows.Err(); err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}

	for _, r := range buffered {
		rec := EntityRecord{WebId: r.webId, Uuid: r.uuid, Properties: r.properties}
		if r.draftId != zeroUuid {
			rec.DraftId = r.draftId
		}
		typeRows, err := d.storePool.Query(ctx, `
			SELECT type_base_url, type_version FROM entity_is_of_type
			WHERE web_id = $1 AND entity_uuid = $2 AND draft_id = $3 AND upper_inf(tx_range)
		`, r.webId, r.uuid, r.draftId)
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		for typeRows.Next() {
			var tb string
			var tv uint32
			if err := typeRows.Scan(&tb, &tv); err != nil {
				typeRows.Close()
				return graphstoreerr.Wrap("snapshot.Dump", err)
			}
			rec.Types = append(rec.Types, fmt.Sprintf("%sv/%d", tb, tv))
		}
		typeRows.Close()

		if r.leftWeb != nil && r.rightWeb != nil {
			rec.Link = &EntityLinkRecord{
				LeftWebId: *r.leftWeb, LeftUuid: *r.leftUuid,
				RightWebId: *r.rightWeb, RightUuid: *r.rightUuid,
			}
			if r.leftDraft != nil && *r.leftDraft != zeroUuid {
				rec.Link.LeftDraftId = *r.leftDraft
			}
			if r.rightDraft != nil && *r.rightDraft != zeroUuid {
				rec.Link.RightDraftId = *r.rightDraft
			}
		}
		lw.write(KindEntity, rec)
	}
	return nil
}

const zeroUuid = "00000000-0000-0000-0000-000000000000"

func (d *Dumper) dumpPrincipals(ctx context.Context, lw *lineWriter) error {
	webRows, err := d.principalPool.Query(ctx, `SELECT web_id FROM webs`)
	if err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}
	for webRows.Next() {
		var id string
		if err := webRows.Scan(&id); err != nil {
			webRows.Close()
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		lw.write(KindPrincipal, PrincipalRecord{PrincipalKind: "web", Id: id})
	}
	webRows.Close()

	actorRows, err := d.principalPool.Query(ctx, `SELECT actor_id, kind FROM accounts`)
	if err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}
	for actorRows.Next() {
		var id, kind string
		if err := actorRows.Scan(&id, &kind); err != nil {
			actorRows.Close()
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		lw.write(KindPrincipal, PrincipalRecord{PrincipalKind: kind, Id: id})
	}
	actorRows.Close()

	groupRows, err := d.principalPool.Query(ctx, `SELECT group_id, kind, owner_web_id FROM account_groups`)
	if err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var id, kind string
		var owner *string
		if err := groupRows.Scan(&id, &kind, &owner); err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		rec := PrincipalRecord{PrincipalKind: kind, Id: id}
		if owner != nil {
			rec.OwnerWebId = *owner
		}
		memberRows, err := d.principalPool.Query(ctx, `SELECT actor_id FROM account_group_members WHERE group_id = $1`, id)
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		for memberRows.Next() {
			var actor string
			if err := memberRows.Scan(&actor); err != nil {
				memberRows.Close()
				return graphstoreerr.Wrap("snapshot.Dump", err)
			}
			rec.Members = append(rec.Members, actor)
		}
		memberRows.Close()
		lw.write(KindPrincipal, rec)
	}
	return groupRows.Err()
}

func (d *Dumper) dumpRoles(ctx context.Context, lw *lineWriter) error {
	rows, err := d.principalPool.Query(ctx, `
		SELECT role_id, group_id, name, effect, policy FROM roles WHERE archived = false
	`)
	if err != nil {
		return graphstoreerr.Wrap("snapshot.Dump", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec RoleRecord
		var condition []byte
		if err := rows.Scan(&rec.RoleRef, &rec.GroupId, &rec.Name, &rec.Effect, &condition); err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		rec.Condition = condition

		assigneeRows, err := d.principalPool.Query(ctx, `SELECT actor_id FROM role_assignments WHERE role_id = $1`, rec.RoleRef)
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Dump", err)
		}
		for assigneeRows.Next() {
			var actor string
			if err := assigneeRows.Scan(&actor); err != nil {
				assigneeRows.Close()
				return graphstoreerr.Wrap("snapshot.Dump", err)
			}
			rec.Assignees = append(rec.Assignees, actor)
		}
		assigneeRows.Close()
		lw.write(KindRole, rec)
	}
	return rows.Err()
}
