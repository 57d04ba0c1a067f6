package snapshot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/ontology"
	"graphstore.dev/principal"
	"graphstore.dev/temporal"
)

// fakeEntityStore and fakePrincipalStore record every call instead of
// touching a real backend, letting the fan-out/commit logic in this package
// be exercised without docker.

type fakeEntityStore struct {
	dataTypes     []string
	propertyTypes []string
	entityTypes   []string
	entities      []identifier.EntityId
	patches       []identifier.EntityId
	failOn        string
}

func (f *fakeEntityStore) CreateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error {
	f.dataTypes = append(f.dataTypes, dt.RecordId.String())
	return f.maybeFail("CreateDataType")
}
func (f *fakeEntityStore) UpdateDataType(ctx context.Context, actor identifier.ActorId, dt *ontology.DataType) error {
	f.dataTypes = append(f.dataTypes, dt.RecordId.String())
	return f.maybeFail("UpdateDataType")
}
func (f *fakeEntityStore) CreatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error {
	f.propertyTypes = append(f.propertyTypes, pt.RecordId.String())
	return f.maybeFail("CreatePropertyType")
}
func (f *fakeEntityStore) UpdatePropertyType(ctx context.Context, actor identifier.ActorId, pt *ontology.PropertyType) error {
	f.propertyTypes = append(f.propertyTypes, pt.RecordId.String())
	return f.maybeFail("UpdatePropertyType")
}
func (f *fakeEntityStore) CreateEntityType(ctx context.Context, actor identifier.ActorId, et *ontology.EntityType) error {
	f.entityTypes = append(f.entityTypes, et.RecordId.String())
	return f.maybeFail("CreateEntityType")
}
func (f *fakeEntityStore) UpdateEntityType(ctx context.Context, actor identifier.ActorId, base identifier.BaseUrl, next *ontology.EntityType) error {
	f.entityTypes = append(f.entityTypes, next.RecordId.String())
	return f.maybeFail("UpdateEntityType")
}
func (f *fakeEntityStore) CreateEntity(ctx context.Context, actor identifier.ActorId, ed *knowledge.Edition) error {
	f.entities = append(f.entities, ed.EntityId)
	return f.maybeFail("CreateEntity")
}
func (f *fakeEntityStore) PatchEntity(ctx context.Context, actor identifier.ActorId, id identifier.EntityId, axis temporal.Axis, patch knowledge.Properties, newTypes []identifier.VersionedUrl) error {
	f.patches = append(f.patches, id)
	return f.maybeFail("PatchEntity")
}
func (f *fakeEntityStore) maybeFail(op string) error {
	if f.failOn == op {
		return assertErr(op)
	}
	return nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

type fakePrincipalStore struct {
	webs    []identifier.WebId
	actors  map[string]identifier.ActorId
	groups  map[string]identifier.AccountGroupId
	members map[identifier.AccountGroupId][]identifier.ActorId
	roles   map[identifier.RoleId]principal.Policy
	assigns map[identifier.ActorId][]identifier.RoleId
}

func newFakePrincipalStore() *fakePrincipalStore {
	return &fakePrincipalStore{
		actors:  make(map[string]identifier.ActorId),
		groups:  make(map[string]identifier.AccountGroupId),
		members: make(map[identifier.AccountGroupId][]identifier.ActorId),
		roles:   make(map[identifier.RoleId]principal.Policy),
		assigns: make(map[identifier.ActorId][]identifier.RoleId),
	}
}

func (f *fakePrincipalStore) CreateWeb(ctx context.Context) (identifier.WebId, error) {
	w := identifier.NewWebId()
	f.webs = append(f.webs, w)
	return w, nil
}
func (f *fakePrincipalStore) CreateUser(ctx context.Context) (identifier.ActorId, error) {
	a := identifier.NewActorId()
	return a, nil
}
func (f *fakePrincipalStore) CreateMachine(ctx context.Context) (identifier.ActorId, error) {
	return identifier.NewActorId(), nil
}
func (f *fakePrincipalStore) CreateAi(ctx context.Context) (identifier.ActorId, error) {
	return identifier.NewActorId(), nil
}
func (f *fakePrincipalStore) CreateTeam(ctx context.Context) (identifier.AccountGroupId, error) {
	return identifier.NewAccountGroupId(), nil
}
func (f *fakePrincipalStore) CreateWebTeam(ctx context.Context, owner identifier.WebId) (identifier.AccountGroupId, error) {
	return identifier.NewAccountGroupId(), nil
}
func (f *fakePrincipalStore) CreateWebGroup(ctx context.Context, web identifier.WebId) (identifier.AccountGroupId, error) {
	return identifier.NewAccountGroupId(), nil
}
func (f *fakePrincipalStore) AddAccountGroupMember(ctx context.Context, group identifier.AccountGroupId, actor identifier.ActorId) error {
	f.members[group] = append(f.members[group], actor)
	return nil
}
func (f *fakePrincipalStore) CreateRole(ctx context.Context, group identifier.AccountGroupId, name string, policy principal.Policy) (identifier.RoleId, error) {
	id := identifier.NewRoleId()
	f.roles[id] = policy
	return id, nil
}
func (f *fakePrincipalStore) AssignRole(ctx context.Context, actor identifier.ActorId, role identifier.RoleId) error {
	f.assigns[actor] = append(f.assigns[actor], role)
	return nil
}

func TestRestoreInstallsOntologyThenEntities(t *testing.T) {
	actor := identifier.NewActorId()
	es := &fakeEntityStore{}
	ps := newFakePrincipalStore()
	r := NewRestorer(es, ps)

	input := strings.Join([]string{
		`{"kind":"DataType","baseUrl":"https://example.org/type/text/","version":1,"schema":{},"title":"Text"}`,
		`{"kind":"EntityType","baseUrl":"https://example.org/type/person/","version":1,"schema":{},"title":"Person"}`,
		`{"kind":"Entity","webId":"` + identifier.NewWebId().String() + `","uuid":"` + identifier.NewEntityUuid().String() + `","types":["https://example.org/type/person/v/1"],"properties":{"https://example.org/prop/name/":"Ada"}}`,
	}, "\n")

	report, err := r.Restore(context.Background(), strings.NewReader(input), Options{Actor: actor})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Installed[KindDataType])
	assert.Equal(t, 1, report.Installed[KindEntityType])
	assert.Equal(t, 1, report.Installed[KindEntity])
	assert.Len(t, es.entityTypes, 1)
	assert.Len(t, es.entities, 1)
}

func TestRestoreAbortsOnMalformedRecordUnlessIgnored(t *testing.T) {
	es := &fakeEntityStore{}
	ps := newFakePrincipalStore()
	r := NewRestorer(es, ps)

	input := `{"kind":"DataType","baseUrl":"","version":1}`

	report, err := r.Restore(context.Background(), strings.NewReader(input), Options{})
	require.Error(t, err)
	assert.False(t, report.OK())
	assert.Empty(t, es.dataTypes, "malformed record must not reach the store")

	report, err = r.Restore(context.Background(), strings.NewReader(input), Options{IgnoreValidationErrors: true})
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Empty(t, es.dataTypes)
}

func TestRestoreReplaysMultipleEntityEditionsAsPatches(t *testing.T) {
	es := &fakeEntityStore{}
	ps := newFakePrincipalStore()
	r := NewRestorer(es, ps)

	web := identifier.NewWebId().String()
	uuid := identifier.NewEntityUuid().String()
	typ := "https://example.org/type/person/v/1"

	input := strings.Join([]string{
		`{"kind":"Entity","webId":"` + web + `","uuid":"` + uuid + `","decisionAt":"2026-01-01T00:00:00Z","types":["` + typ + `"],"properties":{"https://example.org/prop/name/":"Ada"}}`,
		`{"kind":"Entity","webId":"` + web + `","uuid":"` + uuid + `","decisionAt":"2026-02-01T00:00:00Z","types":["` + typ + `"],"properties":{"https://example.org/prop/name/":"Ada Lovelace"}}`,
	}, "\n")

	report, err := r.Restore(context.Background(), strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Installed[KindEntity])
	assert.Len(t, es.entities, 1, "only the first edition is a create")
	assert.Len(t, es.patches, 1, "the later edition is replayed as a patch")
}

func TestRestoreInstallsPrincipalsGroupsAndRoles(t *testing.T) {
	es := &fakeEntityStore{}
	ps := newFakePrincipalStore()
	r := NewRestorer(es, ps)

	input := strings.Join([]string{
		`{"kind":"Principal","principalKind":"team","id":"team1"}`,
		`{"kind":"Principal","principalKind":"user","id":"user1"}`,
		`{"kind":"Principal","principalKind":"team","id":"team1-members-only","members":["user1"]}`,
		`{"kind":"Role","roleRef":"role1","groupId":"team1","name":"reader","effect":"permit","condition":{"kind":6},"assignees":["user1"]}`,
	}, "\n")

	report, err := r.Restore(context.Background(), strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Installed[KindPrincipal])
	assert.Equal(t, 1, report.Installed[KindRole])
	assert.Len(t, ps.roles, 1)
}
