package principal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"graphstore.dev/db"
	"graphstore.dev/principal"
)

func newTestPrincipalStore(t *testing.T) (*principal.Store, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("graphstore"),
		tcpostgres.WithUsername("graphstore"),
		tcpostgres.WithPassword("graphstore"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.Open(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s, err := principal.New(ctx, pool)
	require.NoError(t, err)
	return s, ctx
}

func TestCheckDeniesByDefaultWithNoRoles(t *testing.T) {
	s, ctx := newTestPrincipalStore(t)

	actor, err := s.CreateUser(ctx)
	require.NoError(t, err)

	decision, err := s.Check(ctx, principal.Request{
		ActorId: actor,
		Action:  "read",
		Resource: principal.ResourceRef{Kind: "entity", Id: "x"},
	})
	require.NoError(t, err)
	require.Equal(t, principal.Deny, decision)
}

func TestCheckPermitsWhenDirectRoleGrantsIt(t *testing.T) {
	s, ctx := newTestPrincipalStore(t)

	web, err := s.CreateWeb(ctx)
	require.NoError(t, err)
	group, err := s.CreateWebTeam(ctx, web)
	require.NoError(t, err)
	actor, err := s.CreateUser(ctx)
	require.NoError(t, err)

	role, err := s.CreateRole(ctx, group, "reader", principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.All(principal.ActorIdIsSlot(), principal.ResourceKindIs("entity")),
	})
	require.NoError(t, err)
	require.NoError(t, s.AssignRole(ctx, actor, role))

	decision, err := s.Check(ctx, principal.Request{
		ActorId:  actor,
		Action:   "read",
		Resource: principal.ResourceRef{Kind: "entity", Id: "x"},
	})
	require.NoError(t, err)
	require.Equal(t, principal.Permit, decision)
}

func TestCheckPermitsViaGroupMembership(t *testing.T) {
	s, ctx := newTestPrincipalStore(t)

	team, err := s.CreateTeam(ctx)
	require.NoError(t, err)
	actor, err := s.CreateUser(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AddAccountGroupMember(ctx, team, actor))

	role, err := s.CreateRole(ctx, team, "team-writer", principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ResourceKindIs("entity"),
	})
	require.NoError(t, err)
	require.NoError(t, s.AssignRole(ctx, actor, role))

	decision, err := s.Check(ctx, principal.Request{
		ActorId:  actor,
		Action:   "write",
		Resource: principal.ResourceRef{Kind: "entity", Id: "y"},
	})
	require.NoError(t, err)
	require.Equal(t, principal.Permit, decision)
}

func TestCheckDenyBeatsPermitAcrossRoles(t *testing.T) {
	s, ctx := newTestPrincipalStore(t)

	team, err := s.CreateTeam(ctx)
	require.NoError(t, err)
	actor, err := s.CreateUser(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AddAccountGroupMember(ctx, team, actor))

	permitRole, err := s.CreateRole(ctx, team, "allow-all", principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ResourceKindIs("entity"),
	})
	require.NoError(t, err)
	require.NoError(t, s.AssignRole(ctx, actor, permitRole))

	denyRole, err := s.CreateRole(ctx, team, "deny-delete", principal.Policy{
		Effect:    principal.EffectDeny,
		Condition: principal.ActionIs("delete"),
	})
	require.NoError(t, err)
	require.NoError(t, s.AssignRole(ctx, actor, denyRole))

	decision, err := s.Check(ctx, principal.Request{
		ActorId:  actor,
		Action:   "delete",
		Resource: principal.ResourceRef{Kind: "entity", Id: "z"},
	})
	require.NoError(t, err)
	require.Equal(t, principal.Deny, decision)

	// the same actor can still do non-delete actions on entities.
	decision, err = s.Check(ctx, principal.Request{
		ActorId:  actor,
		Action:   "read",
		Resource: principal.ResourceRef{Kind: "entity", Id: "z"},
	})
	require.NoError(t, err)
	require.Equal(t, principal.Permit, decision)
}

func TestCheckArchivedRoleNoLongerGrants(t *testing.T) {
	s, ctx := newTestPrincipalStore(t)

	team, err := s.CreateTeam(ctx)
	require.NoError(t, err)
	actor, err := s.CreateUser(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AddAccountGroupMember(ctx, team, actor))

	role, err := s.CreateRole(ctx, team, "temp", principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ResourceKindIs("entity"),
	})
	require.NoError(t, err)
	require.NoError(t, s.AssignRole(ctx, actor, role))

	require.NoError(t, s.ArchiveRole(ctx, role))

	decision, err := s.Check(ctx, principal.Request{
		ActorId:  actor,
		Action:   "read",
		Resource: principal.ResourceRef{Kind: "entity", Id: "x"},
	})
	require.NoError(t, err)
	require.Equal(t, principal.Deny, decision)
}

func TestRemoveAccountGroupMemberRevokesGroupRoles(t *testing.T) {
	s, ctx := newTestPrincipalStore(t)

	team, err := s.CreateTeam(ctx)
	require.NoError(t, err)
	actor, err := s.CreateUser(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AddAccountGroupMember(ctx, team, actor))

	_, err = s.CreateRole(ctx, team, "member-reader", principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ResourceKindIs("entity"),
	})
	require.NoError(t, err)

	decision, err := s.Check(ctx, principal.Request{
		ActorId:  actor,
		Action:   "read",
		Resource: principal.ResourceRef{Kind: "entity", Id: "x"},
	})
	require.NoError(t, err)
	require.Equal(t, principal.Permit, decision, "membership in the role's group grants it")

	require.NoError(t, s.RemoveAccountGroupMember(ctx, team, actor))

	decision, err = s.Check(ctx, principal.Request{
		ActorId:  actor,
		Action:   "read",
		Resource: principal.ResourceRef{Kind: "entity", Id: "x"},
	})
	require.NoError(t, err)
	require.Equal(t, principal.Deny, decision)
}
