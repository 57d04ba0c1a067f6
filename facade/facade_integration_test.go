package facade_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"graphstore.dev/db"
	"graphstore.dev/facade"
	"graphstore.dev/filter"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/ontology"
	"graphstore.dev/principal"
	"graphstore.dev/store"
)

func newTestFacade(t *testing.T) (*facade.Service, *principal.Store, context.Context) {
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

	s, err := store.New(ctx, pool)
	require.NoError(t, err)
	p, err := principal.New(ctx, pool)
	require.NoError(t, err)

	return facade.New(s, p, pool), p, ctx
}

// permitAll creates a fresh actor holding a role whose policy permits every
// action against every resource, mirroring the "no restrictions configured
// yet" posture the request surface's own callers use when exercising a
// single operation in isolation.
func permitAll(t *testing.T, p *principal.Store, ctx context.Context) identifier.ActorId {
	t.Helper()
	actor, err := p.CreateUser(ctx)
	require.NoError(t, err)
	group, err := p.CreateTeam(ctx)
	require.NoError(t, err)
	role, err := p.CreateRole(ctx, group, "full-access", principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ActorIdIsSlot(),
	})
	require.NoError(t, err)
	require.NoError(t, p.AssignRole(ctx, actor, role))
	return actor
}

func TestCreateEntityDeniedWithoutAnyRole(t *testing.T) {
	svc, p, ctx := newTestFacade(t)
	actor, err := p.CreateUser(ctx)
	require.NoError(t, err)

	web := identifier.NewWebId()
	ed := &knowledge.Edition{
		EntityId: identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()},
		Properties: knowledge.Properties{
			"https://example.org/prop/name/": json.RawMessage(`"Ada"`),
		},
	}
	err = svc.CreateEntity(ctx, actor, ed)
	require.Error(t, err)
	require.True(t, graphstoreerr.Is(err, graphstoreerr.PermissionDenied))
}

func TestCreateEntityThenGetEntitiesRoundTrips(t *testing.T) {
	svc, p, ctx := newTestFacade(t)
	actor := permitAll(t, p, ctx)

	base, err := identifier.ParseBaseUrl("https://example.org/type/person/")
	require.NoError(t, err)
	personV1 := identifier.NewVersionedUrl(base, 1)
	require.NoError(t, svc.CreateEntityType(ctx, actor, &ontology.EntityType{
		Edition: ontology.Edition{RecordId: personV1},
		Schema:  json.RawMessage(`{}`),
		Title:   "Person",
	}))

	web := identifier.NewWebId()
	entityID := identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()}
	require.NoError(t, svc.CreateEntity(ctx, actor, &knowledge.Edition{
		EntityId: entityID,
		Properties: knowledge.Properties{
			"https://example.org/prop/name/": json.RawMessage(`"Ada"`),
		},
		Types: []identifier.VersionedUrl{personV1},
	}))

	f := filter.All()
	got, err := svc.GetEntities(ctx, actor, facade.GetEntitiesRequest{Filter: &f})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, entityID, got[0].EntityId)
	require.Equal(t, []identifier.VersionedUrl{personV1}, got[0].Types)
}

func TestGetEntitiesRejectsNeitherFilterNorQuery(t *testing.T) {
	svc, p, ctx := newTestFacade(t)
	actor := permitAll(t, p, ctx)

	_, err := svc.GetEntities(ctx, actor, facade.GetEntitiesRequest{})
	require.Error(t, err)
	require.True(t, graphstoreerr.Is(err, graphstoreerr.EitherMode))
}
