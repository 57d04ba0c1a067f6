package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"graphstore.dev/db"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/ontology"
	"graphstore.dev/store"
	"graphstore.dev/temporal"
)

func newTestStore(t *testing.T) (*store.Store, context.Context) {
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
	return s, ctx
}

func mustBaseURL(t *testing.T, s string) identifier.BaseUrl {
	t.Helper()
	b, err := identifier.ParseBaseUrl(s)
	require.NoError(t, err)
	return b
}

func TestCreateEntityTypeRejectsNonSequentialVersion(t *testing.T) {
	s, ctx := newTestStore(t)
	actor := identifier.NewActorId()
	base := mustBaseURL(t, "https://example.org/type/person/")

	et := &ontology.EntityType{
		Edition: ontology.Edition{RecordId: identifier.NewVersionedUrl(base, 2)},
		Schema:  json.RawMessage(`{}`),
		Title:   "Person",
	}
	err := s.CreateEntityType(ctx, actor, et)
	require.Error(t, err)
	require.True(t, graphstoreerr.Is(err, graphstoreerr.InvalidInput))
}

func TestCreateEntityThenReadBack(t *testing.T) {
	s, ctx := newTestStore(t)
	actor := identifier.NewActorId()
	base := mustBaseURL(t, "https://example.org/type/person/")

	personV1 := identifier.NewVersionedUrl(base, 1)
	require.NoError(t, s.CreateEntityType(ctx, actor, &ontology.EntityType{
		Edition: ontology.Edition{RecordId: personV1},
		Schema:  json.RawMessage(`{}`),
		Title:   "Person",
	}))

	web := identifier.NewWebId()
	entityID := identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()}
	ed := &knowledge.Edition{
		EntityId: entityID,
		Properties: knowledge.Properties{
			"https://example.org/prop/name/": json.RawMessage(`"Ada"`),
		},
		Types: []identifier.VersionedUrl{personV1},
	}
	require.NoError(t, s.CreateEntity(ctx, actor, ed))

	got, ok, err := s.LoadEdition(ctx, entityID)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `"Ada"`, string(got.Properties["https://example.org/prop/name/"]))
	require.Len(t, got.Types, 1)
	require.Equal(t, personV1.String(), got.Types[0].String())

	diags := s.ValidateEntity(ctx, &knowledge.Edition{
		EntityId: identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()},
		Types:    []identifier.VersionedUrl{personV1},
		Properties: knowledge.Properties{
			"https://example.org/prop/name/": json.RawMessage(`"Grace"`),
		},
	})
	require.Empty(t, diags)
}

func TestCreateLinkEntityWithMissingEndpointFails(t *testing.T) {
	s, ctx := newTestStore(t)
	actor := identifier.NewActorId()
	linkBase := mustBaseURL(t, "https://blockprotocol.org/@blockprotocol/types/entity-type/link/")
	friendBase := mustBaseURL(t, "https://example.org/type/friend-of/")

	require.NoError(t, s.CreateEntityType(ctx, actor, &ontology.EntityType{
		Edition: ontology.Edition{RecordId: identifier.NewVersionedUrl(linkBase, 1)},
		Schema:  json.RawMessage(`{}`),
		Title:   "Link",
	}))
	friendV1 := identifier.NewVersionedUrl(friendBase, 1)
	require.NoError(t, s.CreateEntityType(ctx, actor, &ontology.EntityType{
		Edition:      ontology.Edition{RecordId: friendV1},
		Schema:       json.RawMessage(`{}`),
		Title:        "FriendOf",
		InheritsFrom: []identifier.VersionedUrl{identifier.NewVersionedUrl(linkBase, 1)},
	}))

	web := identifier.NewWebId()
	ed := &knowledge.Edition{
		EntityId: identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()},
		Types:    []identifier.VersionedUrl{friendV1},
		Link: &knowledge.LinkData{
			LeftEntityId:  identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()},
			RightEntityId: identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()},
		},
	}
	err := s.CreateEntity(ctx, actor, ed)
	require.Error(t, err)
	require.True(t, graphstoreerr.Is(err, graphstoreerr.ValidationFailed))
}

func TestPatchEntityMergesPropertiesAndClosesPreviousEdition(t *testing.T) {
	s, ctx := newTestStore(t)
	actor := identifier.NewActorId()
	base := mustBaseURL(t, "https://example.org/type/person/")
	personV1 := identifier.NewVersionedUrl(base, 1)
	require.NoError(t, s.CreateEntityType(ctx, actor, &ontology.EntityType{
		Edition: ontology.Edition{RecordId: personV1},
		Schema:  json.RawMessage(`{}`),
		Title:   "Person",
	}))

	web := identifier.NewWebId()
	entityID := identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()}
	require.NoError(t, s.CreateEntity(ctx, actor, &knowledge.Edition{
		EntityId: entityID,
		Properties: knowledge.Properties{
			"https://example.org/prop/name/": json.RawMessage(`"Ada"`),
		},
		Types: []identifier.VersionedUrl{personV1},
	}))

	err := s.PatchEntity(ctx, actor, entityID, temporal.TransactionTime, knowledge.Properties{
		"https://example.org/prop/age/": json.RawMessage(`37`),
	}, nil)
	require.NoError(t, err)

	got, ok, err := s.LoadEdition(ctx, entityID)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `"Ada"`, string(got.Properties["https://example.org/prop/name/"]))
	require.JSONEq(t, `37`, string(got.Properties["https://example.org/prop/age/"]))
}
