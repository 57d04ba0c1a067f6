package subgraph_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"graphstore.dev/db"
	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/ontology"
	"graphstore.dev/store"
	"graphstore.dev/subgraph"
)

func newTestStoreForSubgraph(t *testing.T) (*store.Store, context.Context) {
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

func TestStoreSourceResolvesHasTypeAndOutgoingLinkEdges(t *testing.T) {
	s, ctx := newTestStoreForSubgraph(t)
	actor := identifier.NewActorId()

	personBase, err := identifier.ParseBaseUrl("https://example.org/type/person/")
	require.NoError(t, err)
	personV1 := identifier.NewVersionedUrl(personBase, 1)
	require.NoError(t, s.CreateEntityType(ctx, actor, &ontology.EntityType{
		Edition: ontology.Edition{RecordId: personV1},
		Schema:  json.RawMessage(`{}`),
		Title:   "Person",
	}))

	linkBase, err := identifier.ParseBaseUrl("https://blockprotocol.org/@blockprotocol/types/entity-type/link/")
	require.NoError(t, err)
	friendBase, err := identifier.ParseBaseUrl("https://example.org/type/friend-of/")
	require.NoError(t, err)
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
	alice := identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()}
	bob := identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()}
	require.NoError(t, s.CreateEntity(ctx, actor, &knowledge.Edition{
		EntityId:   alice,
		Types:      []identifier.VersionedUrl{personV1},
		Properties: knowledge.Properties{},
	}))
	require.NoError(t, s.CreateEntity(ctx, actor, &knowledge.Edition{
		EntityId:   bob,
		Types:      []identifier.VersionedUrl{personV1},
		Properties: knowledge.Properties{},
	}))
	link := identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()}
	require.NoError(t, s.CreateEntity(ctx, actor, &knowledge.Edition{
		EntityId: link,
		Types:    []identifier.VersionedUrl{friendV1},
		Link:     &knowledge.LinkData{LeftEntityId: alice, RightEntityId: bob},
	}))

	src := subgraph.NewStoreSource(s)
	result, err := subgraph.Resolve(ctx, src, []subgraph.Vertex{subgraph.EntityVertex(alice)},
		subgraph.GraphResolveDepths{
			subgraph.EdgeHasType:       1,
			subgraph.EdgeOutgoingLink:  1,
			subgraph.EdgeHasRightEntity: 1,
		}, nil)
	require.NoError(t, err)

	require.Contains(t, result.Vertices, subgraph.EntityVertex(alice))
	require.Contains(t, result.Vertices, subgraph.EntityTypeVertex(personV1))
	require.Contains(t, result.Vertices, subgraph.EntityVertex(link))
	require.Contains(t, result.Vertices, subgraph.EntityVertex(bob))
}
