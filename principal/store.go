package principal

import (
	"context"

	"graphstore.dev/common"
	"graphstore.dev/db"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
)

// Store is the entry point for every principal/policy operation: creating
// webs, actors, groups and roles, assigning and revoking roles, and running
// the permission check. It holds one connection pool for its lifetime and,
// optionally, a read-mostly Cache for check() results and a BoltMirror for
// offline role-assignment lookups.
type Store struct {
	pool   *db.Pool
	log    *common.ContextLogger
	cache  Cache
	mirror *BoltMirror
}

// Option configures optional Store collaborators.
type Option func(*Store)

// WithCache attaches a read-mostly decision cache, invalidated synchronously
// on AssignRole/ArchiveRole.
func WithCache(c Cache) Option { return func(s *Store) { s.cache = c } }

// WithBoltMirror attaches an embedded durable mirror of role assignments,
// written alongside every AssignRole/RemoveRoleAssignment Postgres write.
func WithBoltMirror(m *BoltMirror) Option { return func(s *Store) { s.mirror = m } }

// New constructs a Store backed by pool and applies schema if not already
// present.
func New(ctx context.Context, pool *db.Pool, opts ...Option) (*Store, error) {
	s := &Store{pool: pool, log: common.ServiceLogger("principal", "dev")}
	for _, opt := range opts {
		opt(s)
	}
	if err := pool.Exec(ctx, schema); err != nil {
		return nil, graphstoreerr.Wrap("principal.New", err)
	}
	return s, nil
}

// CreateWeb records a fresh realm.
func (s *Store) CreateWeb(ctx context.Context) (identifier.WebId, error) {
	id := identifier.NewWebId()
	if err := s.pool.Exec(ctx, `INSERT INTO webs (web_id) VALUES ($1)`, id.String()); err != nil {
		return identifier.WebId{}, graphstoreerr.Wrap("principal.CreateWeb", err)
	}
	return id, nil
}

func (s *Store) createActor(ctx context.Context, kind ActorKind) (identifier.ActorId, error) {
	id := identifier.NewActorId()
	if err := s.pool.Exec(ctx, `INSERT INTO accounts (actor_id, kind) VALUES ($1, $2)`, id.String(), kind.String()); err != nil {
		return identifier.ActorId{}, graphstoreerr.Wrap("principal.CreateActor", err)
	}
	return id, nil
}

// CreateUser records a fresh human actor.
func (s *Store) CreateUser(ctx context.Context) (identifier.ActorId, error) { return s.createActor(ctx, ActorUser) }

// CreateMachine records a fresh non-human, non-model actor (a service account).
func (s *Store) CreateMachine(ctx context.Context) (identifier.ActorId, error) {
	return s.createActor(ctx, ActorMachine)
}

// CreateAi records a fresh model-backed actor.
func (s *Store) CreateAi(ctx context.Context) (identifier.ActorId, error) { return s.createActor(ctx, ActorAi) }

// CreateTeam records a fresh free-standing group.
func (s *Store) CreateTeam(ctx context.Context) (identifier.AccountGroupId, error) {
	return s.createGroup(ctx, GroupTeam, nil)
}

// CreateWebTeam records a fresh group owned by owner.
func (s *Store) CreateWebTeam(ctx context.Context, owner identifier.WebId) (identifier.AccountGroupId, error) {
	return s.createGroup(ctx, GroupWebTeam, &owner)
}

// CreateWebGroup records the group backing a web's own default membership,
// letting a web itself hold roles the way a team does.
func (s *Store) CreateWebGroup(ctx context.Context, web identifier.WebId) (identifier.AccountGroupId, error) {
	return s.createGroup(ctx, GroupWeb, &web)
}

func (s *Store) createGroup(ctx context.Context, kind GroupKind, owner *identifier.WebId) (identifier.AccountGroupId, error) {
	id := identifier.NewAccountGroupId()
	var ownerArg any
	if owner != nil {
		ownerArg = owner.String()
	}
	if err := s.pool.Exec(ctx, `INSERT INTO account_groups (group_id, kind, owner_web_id) VALUES ($1, $2, $3)`,
		id.String(), kind.String(), ownerArg); err != nil {
		return identifier.AccountGroupId{}, graphstoreerr.Wrap("principal.CreateGroup", err)
	}
	return id, nil
}

// AddAccountGroupMember makes actor a member of group.
func (s *Store) AddAccountGroupMember(ctx context.Context, group identifier.AccountGroupId, actor identifier.ActorId) error {
	err := s.pool.Exec(ctx, `
		INSERT INTO account_group_members (group_id, actor_id) VALUES ($1, $2)
		ON CONFLICT (group_id, actor_id) DO NOTHING
	`, group.String(), actor.String())
	if err != nil {
		return graphstoreerr.Wrap("principal.AddAccountGroupMember", err)
	}
	s.invalidate(ctx, actor)
	return nil
}

// RemoveAccountGroupMember ends actor's membership in group.
func (s *Store) RemoveAccountGroupMember(ctx context.Context, group identifier.AccountGroupId, actor identifier.ActorId) error {
	err := s.pool.Exec(ctx, `DELETE FROM account_group_members WHERE group_id = $1 AND actor_id = $2`,
		group.String(), actor.String())
	if err != nil {
		return graphstoreerr.Wrap("principal.RemoveAccountGroupMember", err)
	}
	s.invalidate(ctx, actor)
	return nil
}

// CreateRole installs a new role attached to group, granting policy.
// Policies are immutable once installed (§4.6): there is no UpdateRole, only
// CreateRole plus AssignRole/ArchiveRole to change what an actor can do.
func (s *Store) CreateRole(ctx context.Context, group identifier.AccountGroupId, name string, policy Policy) (identifier.RoleId, error) {
	id := identifier.NewRoleId()
	conditionJSON, err := marshalPolicy(policy.Condition)
	if err != nil {
		return identifier.RoleId{}, graphstoreerr.Invalid("principal.CreateRole", err)
	}
	err = s.pool.Exec(ctx, `
		INSERT INTO roles (role_id, group_id, name, effect, policy, archived)
		VALUES ($1, $2, $3, $4, $5, false)
	`, id.String(), group.String(), name, policy.Effect.String(), conditionJSON)
	if err != nil {
		return identifier.RoleId{}, graphstoreerr.Wrap("principal.CreateRole", err)
	}
	return id, nil
}

// ArchiveRole marks role archived: it stops participating in Check and its
// assignments become inert, the revocation path named in §4.6 alongside
// removing a single role assignment. Every actor holding the role, directly
// or through the role's group, has its cached decisions invalidated.
func (s *Store) ArchiveRole(ctx context.Context, role identifier.RoleId) error {
	if err := s.pool.Exec(ctx, `UPDATE roles SET archived = true WHERE role_id = $1`, role.String()); err != nil {
		return graphstoreerr.Wrap("principal.ArchiveRole", err)
	}
	if s.cache == nil {
		return nil
	}
	rows, err := s.pool.Query(ctx, `SELECT actor_id::text FROM role_assignments WHERE role_id = $1 UNION
		SELECT m.actor_id::text FROM account_group_members m JOIN roles r ON r.group_id = m.group_id WHERE r.role_id = $1`, role.String())
	if err != nil {
		return graphstoreerr.Wrap("principal.ArchiveRole", err)
	}
	defer rows.Close()
	for rows.Next() {
		var actorId string
		if rows.Scan(&actorId) == nil {
			s.cache.InvalidateActor(ctx, actorId)
		}
	}
	return rows.Err()
}

// AssignRole grants role to actor directly.
func (s *Store) AssignRole(ctx context.Context, actor identifier.ActorId, role identifier.RoleId) error {
	err := s.pool.Exec(ctx, `
		INSERT INTO role_assignments (actor_id, role_id) VALUES ($1, $2)
		ON CONFLICT (actor_id, role_id) DO NOTHING
	`, actor.String(), role.String())
	if err != nil {
		return graphstoreerr.Wrap("principal.AssignRole", err)
	}
	if s.mirror != nil {
		if err := s.mirror.RecordAssignment(actor.String(), role.String()); err != nil {
			s.log.WithError(err).Warn("principal: bolt mirror record assignment failed")
		}
	}
	s.invalidate(ctx, actor)
	return nil
}

// RemoveRoleAssignment revokes role from actor.
func (s *Store) RemoveRoleAssignment(ctx context.Context, actor identifier.ActorId, role identifier.RoleId) error {
	err := s.pool.Exec(ctx, `DELETE FROM role_assignments WHERE actor_id = $1 AND role_id = $2`,
		actor.String(), role.String())
	if err != nil {
		return graphstoreerr.Wrap("principal.RemoveRoleAssignment", err)
	}
	if s.mirror != nil {
		if err := s.mirror.RemoveAssignment(actor.String(), role.String()); err != nil {
			s.log.WithError(err).Warn("principal: bolt mirror remove assignment failed")
		}
	}
	s.invalidate(ctx, actor)
	return nil
}

func (s *Store) invalidate(ctx context.Context, actor identifier.ActorId) {
	if s.cache != nil {
		s.cache.InvalidateActor(ctx, actor.String())
	}
}
