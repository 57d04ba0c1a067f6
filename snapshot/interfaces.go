package snapshot

import (
	"context"

	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/ontology"
	"graphstore.dev/principal"
	"graphstore.dev/temporal"
)

// entityStore is the subset of *store.Store the restorer drives.
// Declared locally (rather than imported as store.Store directly) so tests
// can exercise the fan-out/commit logic against an in-memory fake instead
// of a live Postgres instance.
type entityStore interface {
	CreateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error
	UpdateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error
	CreatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error
	UpdatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error
	CreateEntityType(ctx context.Context, actor identifier.ActorId, et *ontology.EntityType) error
	UpdateEntityType(ctx context.Context, actor identifier.ActorId, base identifier.BaseUrl, next *ontology.EntityType) error
	CreateEntity(ctx context.Context, actor identifier.ActorId, ed *knowledge.Edition) error
	PatchEntity(ctx context.Context, actor identifier.ActorId, id identifier.EntityId, axis temporal.Axis, patch knowledge.Properties, newTypes []identifier.VersionedUrl) error
}

// principalStore is the subset of *principal.Store the restorer drives.
type principalStore interface {
	CreateWeb(ctx context.Context) (identifier.WebId, error)
	CreateUser(ctx context.Context) (identifier.ActorId, error)
	CreateMachine(ctx context.Context) (identifier.ActorId, error)
	CreateAi(ctx context.Context) (identifier.ActorId, error)
	CreateTeam(ctx context.Context) (identifier.AccountGroupId, error)
	CreateWebTeam(ctx context.Context, owner identifier.WebId) (identifier.AccountGroupId, error)
	CreateWebGroup(ctx context.Context, web identifier.WebId) (identifier.AccountGroupId, error)
	AddAccountGroupMember(ctx context.Context, group identifier.AccountGroupId, actor identifier.ActorId) error
	CreateRole(ctx context.Context, group identifier.AccountGroupId, name string, policy principal.Policy) (identifier.RoleId, error)
	AssignRole(ctx context.Context, actor identifier.ActorId, role identifier.RoleId) error
}
