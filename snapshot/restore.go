package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	humanize "github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"graphstore.dev/common"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/ontology"
	"graphstore.dev/principal"
	"graphstore.dev/temporal"
)

// Options tunes a single restore run.
type Options struct {
	// ChunkSize is the capacity of the one channel between the line scanner
	// and the decoder, and the unit back-pressure propagates in: the scanner
	// blocks once that channel fills. Records are not split into per-kind
	// channels.
	ChunkSize int
	// IgnoreValidationErrors lets the restore proceed past malformed
	// records, skipping only the offending lines, instead of aborting
	// before any write is attempted.
	IgnoreValidationErrors bool
	// Actor is the identity every restored record is attributed to.
	Actor identifier.ActorId
}

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return 256
	}
	return o.ChunkSize
}

// Restorer drains a snapshot stream into a store and a principal store.
type Restorer struct {
	store     entityStore
	principal principalStore
	notifier  CompletionNotifier
	log       *common.ContextLogger
}

// RestorerOption configures optional Restorer collaborators.
type RestorerOption func(*Restorer)

// WithCompletionNotifier attaches a best-effort notification sink: its
// Notify is called once after every Restore call, success or failure, and
// its own errors are logged rather than propagated.
func WithCompletionNotifier(n CompletionNotifier) RestorerOption {
	return func(r *Restorer) { r.notifier = n }
}

func NewRestorer(store entityStore, principalStore principalStore, opts ...RestorerOption) *Restorer {
	r := &Restorer{store: store, principal: principalStore, log: common.ServiceLogger("snapshot", "dev")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// staged holds every decoded, individually-validated record, bucketed by
// kind, in the order it was read from the input. This is the in-memory
// stand-in for the per-kind temporary tables: by the time Restore reaches
// the commit phase every record has already passed its local validation,
// so the commit phase itself only fails on referential/backend errors.
type staged struct {
	dataTypes     []DataTypeRecord
	propertyTypes []PropertyTypeRecord
	entityTypes   []EntityTypeRecord
	entities      []EntityRecord
	principals    []PrincipalRecord
	policies      map[string]PolicyRecord
	roles         []RoleRecord
}

// Restore reads a line-delimited JSON snapshot from r and installs it.
//
// Phase one passes every line through one bounded channel to a single
// decoder that validates each record and buckets it by kind; validation
// failures either abort the whole restore or are dropped into the report,
// depending on opts.IgnoreValidationErrors.
// Phase two commits the staged records in topological order: data types and
// property types first (leaves with no cross-references), then entity
// types (whose closure the store recomputes from the restored schema on
// insert), then entities, then the principal/role graph. The first backend
// error aborts the remainder of the commit and is returned alongside a
// partial Report — true single-transaction atomicity across the entity and
// principal stores would require threading one *db.Tx through both, which
// neither store's public API exposes (see DESIGN.md).
func (rst *Restorer) Restore(ctx context.Context, r io.Reader, opts Options) (report *Report, restoreErr error) {
	report = newReport()
	defer rst.notify(report, &restoreErr)

	st, err := rst.stage(ctx, r, opts, report)
	if err != nil {
		restoreErr = err
		return report, restoreErr
	}
	if len(report.Errors) > 0 && !opts.IgnoreValidationErrors {
		restoreErr = graphstoreerr.Invalidated("snapshot.Restore", "validation", nil)
		return report, restoreErr
	}

	if err := rst.commitOntology(ctx, opts.Actor, st, report); err != nil {
		restoreErr = err
		return report, restoreErr
	}
	if err := rst.commitEntities(ctx, opts.Actor, st, report); err != nil {
		restoreErr = err
		return report, restoreErr
	}
	if err := rst.commitPrincipals(ctx, st, report); err != nil {
		restoreErr = err
		return report, restoreErr
	}

	rst.log.Info(fmt.Sprintf("snapshot restore installed %s records",
		humanize.Comma(int64(totalInstalled(report)))))
	return report, nil
}

func (rst *Restorer) notify(report *Report, restoreErr *error) {
	if rst.notifier == nil {
		return
	}
	if err := rst.notifier.Notify(report, *restoreErr); err != nil {
		rst.log.Warn(fmt.Sprintf("snapshot completion notification failed: %v", err))
	}
}

func totalInstalled(r *Report) int {
	n := 0
	for _, c := range r.Installed {
		n += c
	}
	return n
}

// stage runs a scanner goroutine and a decoder goroutine joined by one
// bounded channel shared by all record kinds; the decoder buckets each
// record by kind into the staged result. The channel provides back-pressure:
// a slow decoder stalls the scanner.
func (rst *Restorer) stage(ctx context.Context, r io.Reader, opts Options, report *Report) (*staged, error) {
	chunk := opts.chunkSize()
	lines := make(chan lineRecord, chunk)

	g, ctx := errgroup.WithContext(ctx)
	st := &staged{policies: make(map[string]PolicyRecord)}

	g.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			text := scanner.Bytes()
			if len(text) == 0 {
				continue
			}
			select {
			case lines <- lineRecord{no: lineNo, raw: append([]byte(nil), text...)}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return scanner.Err()
	})

	g.Go(func() error {
		for lr := range lines {
			if err := decodeInto(st, lr, report); err != nil && !opts.IgnoreValidationErrors {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, graphstoreerr.Wrap("snapshot.Restore", err)
	}
	return st, nil
}

type lineRecord struct {
	no  int
	raw []byte
}

func decodeInto(st *staged, lr lineRecord, report *Report) error {
	var env envelope
	if err := json.Unmarshal(lr.raw, &env); err != nil {
		report.recordError(lr.no, "", err)
		return err
	}

	switch env.Kind {
	case KindDataType:
		var rec DataTypeRecord
		if err := unmarshalValidated(env.Payload, &rec, report, lr.no, env.Kind); err != nil {
			return err
		}
		st.dataTypes = append(st.dataTypes, rec)
	case KindPropertyType:
		var rec PropertyTypeRecord
		if err := unmarshalValidated(env.Payload, &rec, report, lr.no, env.Kind); err != nil {
			return err
		}
		st.propertyTypes = append(st.propertyTypes, rec)
	case KindEntityType:
		var rec EntityTypeRecord
		if err := unmarshalValidated(env.Payload, &rec, report, lr.no, env.Kind); err != nil {
			return err
		}
		st.entityTypes = append(st.entityTypes, rec)
	case KindEntity:
		var rec EntityRecord
		if err := unmarshalValidated(env.Payload, &rec, report, lr.no, env.Kind); err != nil {
			return err
		}
		st.entities = append(st.entities, rec)
	case KindPrincipal:
		var rec PrincipalRecord
		if err := unmarshalValidated(env.Payload, &rec, report, lr.no, env.Kind); err != nil {
			return err
		}
		st.principals = append(st.principals, rec)
	case KindPolicy:
		var rec PolicyRecord
		if err := unmarshalValidated(env.Payload, &rec, report, lr.no, env.Kind); err != nil {
			return err
		}
		st.policies[rec.PolicyRef] = rec
	case KindRole:
		var rec RoleRecord
		if err := unmarshalValidated(env.Payload, &rec, report, lr.no, env.Kind); err != nil {
			return err
		}
		st.roles = append(st.roles, rec)
	default:
		err := fmt.Errorf("snapshot: unknown record kind %q", env.Kind)
		report.recordError(lr.no, env.Kind, err)
		return err
	}
	return nil
}

type validator interface{ validate() error }

func unmarshalValidated[T any](raw json.RawMessage, dst *T, report *Report, line int, kind Kind) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		report.recordError(line, kind, err)
		return err
	}
	if v, ok := any(*dst).(validator); ok {
		if err := v.validate(); err != nil {
			report.recordError(line, kind, err)
			return err
		}
	}
	return nil
}

// commitOntology installs data types, property types, then entity types, in
// ascending-version order per base URL so every Create/Update call sees a
// sequential version the way a live caller would produce one.
func (rst *Restorer) commitOntology(ctx context.Context, actor identifier.ActorId, st *staged, report *Report) error {
	byBaseVersion(st.dataTypes, func(r DataTypeRecord) (string, uint32) { return r.BaseUrl, r.Version })
	byBaseVersion(st.propertyTypes, func(r PropertyTypeRecord) (string, uint32) { return r.BaseUrl, r.Version })
	byBaseVersion(st.entityTypes, func(r EntityTypeRecord) (string, uint32) { return r.BaseUrl, r.Version })

	for _, r := range st.dataTypes {
		dt, err := r.toOntology()
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		if err := rst.createOrUpdateDataType(ctx, actor, dt); err != nil {
			return err
		}
		report.installed(KindDataType, 1)
	}

	for _, r := range st.propertyTypes {
		pt, err := r.toOntology()
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		if err := rst.createOrUpdatePropertyType(ctx, actor, pt); err != nil {
			return err
		}
		report.installed(KindPropertyType, 1)
	}

	for _, r := range st.entityTypes {
		et, err := r.toOntology()
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		if err := rst.createOrUpdateEntityType(ctx, actor, et); err != nil {
			return err
		}
		report.installed(KindEntityType, 1)
	}
	return nil
}

func (rst *Restorer) createOrUpdateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error {
	if dt.RecordId.Version == 1 {
		return rst.store.CreateDataType(ctx, actor, dt)
	}
	return rst.store.UpdateDataType(ctx, actor, dt)
}

func (rst *Restorer) createOrUpdatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error {
	if pt.RecordId.Version == 1 {
		return rst.store.CreatePropertyType(ctx, actor, pt)
	}
	return rst.store.UpdatePropertyType(ctx, actor, pt)
}

func (rst *Restorer) createOrUpdateEntityType(ctx context.Context, actor identifier.ActorId, et *ontology.EntityType) error {
	if et.RecordId.Version == 1 {
		return rst.store.CreateEntityType(ctx, actor, et)
	}
	return rst.store.UpdateEntityType(ctx, actor, et.RecordId.Base, et)
}

// byBaseVersion sorts recs in place by (baseUrl, version) ascending.
func byBaseVersion[T any](recs []T, key func(T) (string, uint32)) {
	sort.SliceStable(recs, func(i, j int) bool {
		bi, vi := key(recs[i])
		bj, vj := key(recs[j])
		if bi != bj {
			return bi < bj
		}
		return vi < vj
	})
}

// commitEntities replays each entity's editions in decision-time order: the
// first becomes the initial CreateEntity call, the rest are applied as
// PatchEntity calls against the property set and type membership they
// carry. Restoring does not attempt to reproduce the original transaction
// time; every installed edition is stamped with the restore's own "now",
// same as any other write (see DESIGN.md).
func (rst *Restorer) commitEntities(ctx context.Context, actor identifier.ActorId, st *staged, report *Report) error {
	byEntity := make(map[string][]EntityRecord)
	var order []string
	for _, r := range st.entities {
		key := r.WebId + "/" + r.Uuid + "~" + r.DraftId
		if _, seen := byEntity[key]; !seen {
			order = append(order, key)
		}
		byEntity[key] = append(byEntity[key], r)
	}

	for _, key := range order {
		editions := byEntity[key]
		sort.SliceStable(editions, func(i, j int) bool { return editions[i].DecisionAt < editions[j].DecisionAt })

		first, err := editions[0].toEdition()
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		if err := rst.store.CreateEntity(ctx, actor, first); err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		report.installed(KindEntity, 1)

		for _, later := range editions[1:] {
			var props map[string]json.RawMessage
			if err := json.Unmarshal(later.Properties, &props); err != nil {
				return graphstoreerr.Wrap("snapshot.Restore", err)
			}
			types, err := versionedUrls(later.Types)
			if err != nil {
				return graphstoreerr.Wrap("snapshot.Restore", err)
			}
			id, err := entityId(later.WebId, later.Uuid, later.DraftId)
			if err != nil {
				return graphstoreerr.Wrap("snapshot.Restore", err)
			}
			if err := rst.store.PatchEntity(ctx, actor, id, temporal.DecisionTime, props, types); err != nil {
				return graphstoreerr.Wrap("snapshot.Restore", err)
			}
		}
	}
	return nil
}

// commitPrincipals installs webs first, then actors and groups (which may
// reference a web), then group memberships, then roles (which reference a
// group and, indirectly, the policy either inlined or looked up by
// PolicyRef), then role assignments.
func (rst *Restorer) commitPrincipals(ctx context.Context, st *staged, report *Report) error {
	ids := make(map[string]string) // snapshot-local ref -> installed identifier string
	groupOwner := make(map[string]string)

	for _, r := range st.principals {
		if r.PrincipalKind != "web" {
			continue
		}
		web, err := rst.principal.CreateWeb(ctx)
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		ids[r.Id] = web.String()
		report.installed(KindPrincipal, 1)
	}

	for _, r := range st.principals {
		var (
			id  string
			err error
		)
		switch r.PrincipalKind {
		case "web":
			continue
		case "user":
			var actor identifier.ActorId
			actor, err = rst.principal.CreateUser(ctx)
			id = actor.String()
		case "machine":
			var actor identifier.ActorId
			actor, err = rst.principal.CreateMachine(ctx)
			id = actor.String()
		case "ai":
			var actor identifier.ActorId
			actor, err = rst.principal.CreateAi(ctx)
			id = actor.String()
		case "team":
			var group identifier.AccountGroupId
			group, err = rst.principal.CreateTeam(ctx)
			id = group.String()
		case "web_team":
			owner, ok := ids[r.OwnerWebId]
			if !ok {
				err = fmt.Errorf("snapshot: web_team %s references unknown web %s", r.Id, r.OwnerWebId)
				break
			}
			var web identifier.WebId
			web, err = identifier.ParseWebId(owner)
			if err != nil {
				break
			}
			var group identifier.AccountGroupId
			group, err = rst.principal.CreateWebTeam(ctx, web)
			id = group.String()
			groupOwner[r.Id] = owner
		}
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		ids[r.Id] = id
		report.installed(KindPrincipal, 1)
	}

	for _, r := range st.principals {
		if len(r.Members) == 0 {
			continue
		}
		group, err := identifier.ParseAccountGroupId(ids[r.Id])
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		for _, memberRef := range r.Members {
			actorStr, ok := ids[memberRef]
			if !ok {
				return graphstoreerr.Wrap("snapshot.Restore", fmt.Errorf("snapshot: group %s references unknown member %s", r.Id, memberRef))
			}
			actor, err := identifier.ParseActorId(actorStr)
			if err != nil {
				return graphstoreerr.Wrap("snapshot.Restore", err)
			}
			if err := rst.principal.AddAccountGroupMember(ctx, group, actor); err != nil {
				return graphstoreerr.Wrap("snapshot.Restore", err)
			}
		}
	}

	roleIds := make(map[string]string)
	for _, r := range st.roles {
		groupId, err := identifier.ParseAccountGroupId(ids[r.GroupId])
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", fmt.Errorf("snapshot: role %s references unknown group %s", r.RoleRef, r.GroupId))
		}

		effect, condition := r.Effect, r.Condition
		if r.PolicyRef != "" {
			pr, ok := st.policies[r.PolicyRef]
			if !ok {
				return graphstoreerr.Wrap("snapshot.Restore", fmt.Errorf("snapshot: role %s references unknown policy %s", r.RoleRef, r.PolicyRef))
			}
			effect, condition = pr.Effect, pr.Condition
		}

		policy, err := decodePolicy(effect, condition)
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}

		roleId, err := rst.principal.CreateRole(ctx, groupId, r.Name, policy)
		if err != nil {
			return graphstoreerr.Wrap("snapshot.Restore", err)
		}
		roleIds[r.RoleRef] = roleId.String()
		report.installed(KindRole, 1)

		for _, assigneeRef := range r.Assignees {
			actorStr, ok := ids[assigneeRef]
			if !ok {
				return graphstoreerr.Wrap("snapshot.Restore", fmt.Errorf("snapshot: role %s assigns unknown actor %s", r.RoleRef, assigneeRef))
			}
			actor, err := identifier.ParseActorId(actorStr)
			if err != nil {
				return graphstoreerr.Wrap("snapshot.Restore", err)
			}
			if err := rst.principal.AssignRole(ctx, actor, roleId); err != nil {
				return graphstoreerr.Wrap("snapshot.Restore", err)
			}
		}
	}
	return nil
}

func decodePolicy(effect string, condition json.RawMessage) (principal.Policy, error) {
	eff := principal.EffectPermit
	if effect == "deny" {
		eff = principal.EffectDeny
	}
	cond, err := principal.ConditionFromJSON(condition)
	if err != nil {
		return principal.Policy{}, err
	}
	return principal.Policy{Effect: eff, Condition: cond}, nil
}
