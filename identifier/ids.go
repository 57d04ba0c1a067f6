package identifier

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EntityUuid is the 128-bit identity of an entity, stable across all of its
// editions.
type EntityUuid struct{ v uuid.UUID }

// WebId is the 128-bit identity of an owning realm ("web").
type WebId struct{ v uuid.UUID }

// DraftId optionally marks an entity edition as belonging to an isolated
// draft branch.
type DraftId struct{ v uuid.UUID }

// ActorId identifies a principal capable of performing an action: a user,
// machine, or AI actor.
type ActorId struct{ v uuid.UUID }

// RoleId identifies a role grantable to an actor.
type RoleId struct{ v uuid.UUID }

// TeamId identifies a free-standing team group.
type TeamId struct{ v uuid.UUID }

// AccountGroupId identifies any principal group (web, team, or web-team).
type AccountGroupId struct{ v uuid.UUID }

// NewEntityUuid generates a fresh random EntityUuid.
func NewEntityUuid() EntityUuid { return EntityUuid{v: uuid.New()} }

// NewWebId generates a fresh random WebId.
func NewWebId() WebId { return WebId{v: uuid.New()} }

// NewDraftId generates a fresh random DraftId.
func NewDraftId() DraftId { return DraftId{v: uuid.New()} }

// NewActorId generates a fresh random ActorId.
func NewActorId() ActorId { return ActorId{v: uuid.New()} }

// NewRoleId generates a fresh random RoleId.
func NewRoleId() RoleId { return RoleId{v: uuid.New()} }

// NewTeamId generates a fresh random TeamId.
func NewTeamId() TeamId { return TeamId{v: uuid.New()} }

// NewAccountGroupId generates a fresh random AccountGroupId.
func NewAccountGroupId() AccountGroupId { return AccountGroupId{v: uuid.New()} }

func (id EntityUuid) String() string     { return id.v.String() }
func (id WebId) String() string          { return id.v.String() }
func (id DraftId) String() string        { return id.v.String() }
func (id ActorId) String() string        { return id.v.String() }
func (id RoleId) String() string         { return id.v.String() }
func (id TeamId) String() string         { return id.v.String() }
func (id AccountGroupId) String() string { return id.v.String() }

func (id EntityUuid) Equal(o EntityUuid) bool     { return id.v == o.v }
func (id WebId) Equal(o WebId) bool               { return id.v == o.v }
func (id DraftId) Equal(o DraftId) bool           { return id.v == o.v }
func (id ActorId) Equal(o ActorId) bool           { return id.v == o.v }
func (id RoleId) Equal(o RoleId) bool             { return id.v == o.v }
func (id TeamId) Equal(o TeamId) bool             { return id.v == o.v }
func (id AccountGroupId) Equal(o AccountGroupId) bool { return id.v == o.v }

func (id EntityUuid) IsZero() bool      { return id.v == uuid.Nil }
func (id WebId) IsZero() bool           { return id.v == uuid.Nil }
func (id DraftId) IsZero() bool         { return id.v == uuid.Nil }
func (id ActorId) IsZero() bool         { return id.v == uuid.Nil }
func (id RoleId) IsZero() bool          { return id.v == uuid.Nil }
func (id TeamId) IsZero() bool          { return id.v == uuid.Nil }
func (id AccountGroupId) IsZero() bool  { return id.v == uuid.Nil }

// ParseEntityUuid parses a canonical UUID string into an EntityUuid.
func ParseEntityUuid(s string) (EntityUuid, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return EntityUuid{}, fmt.Errorf("identifier: invalid entity uuid %q: %w", s, err)
	}
	return EntityUuid{v: v}, nil
}

// ParseWebId parses a canonical UUID string into a WebId.
func ParseWebId(s string) (WebId, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return WebId{}, fmt.Errorf("identifier: invalid web id %q: %w", s, err)
	}
	return WebId{v: v}, nil
}

// ParseActorId parses a canonical UUID string into an ActorId.
func ParseActorId(s string) (ActorId, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return ActorId{}, fmt.Errorf("identifier: invalid actor id %q: %w", s, err)
	}
	return ActorId{v: v}, nil
}

// ParseDraftId parses a canonical UUID string into a DraftId.
func ParseDraftId(s string) (DraftId, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return DraftId{}, fmt.Errorf("identifier: invalid draft id %q: %w", s, err)
	}
	return DraftId{v: v}, nil
}

// ParseRoleId parses a canonical UUID string into a RoleId.
func ParseRoleId(s string) (RoleId, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return RoleId{}, fmt.Errorf("identifier: invalid role id %q: %w", s, err)
	}
	return RoleId{v: v}, nil
}

// ParseTeamId parses a canonical UUID string into a TeamId.
func ParseTeamId(s string) (TeamId, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return TeamId{}, fmt.Errorf("identifier: invalid team id %q: %w", s, err)
	}
	return TeamId{v: v}, nil
}

// ParseAccountGroupId parses a canonical UUID string into an AccountGroupId.
func ParseAccountGroupId(s string) (AccountGroupId, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return AccountGroupId{}, fmt.Errorf("identifier: invalid account group id %q: %w", s, err)
	}
	return AccountGroupId{v: v}, nil
}

// EntityId is an entity's immutable identity: the owning web, the entity's
// own uuid, and an optional draft branch marker.
type EntityId struct {
	WebId   WebId
	Uuid    EntityUuid
	DraftId *DraftId
}

// ParseEntityId parses the "webId/entityUuid" or "webId/entityUuid~draftId"
// wire form EntityId.String produces.
func ParseEntityId(s string) (EntityId, error) {
	webPart, rest, ok := strings.Cut(s, "/")
	if !ok {
		return EntityId{}, fmt.Errorf("identifier: %q is not a web/uuid entity id", s)
	}
	web, err := ParseWebId(webPart)
	if err != nil {
		return EntityId{}, err
	}
	uuidPart, draftPart, hasDraft := strings.Cut(rest, "~")
	entityUuid, err := ParseEntityUuid(uuidPart)
	if err != nil {
		return EntityId{}, err
	}
	id := EntityId{WebId: web, Uuid: entityUuid}
	if hasDraft {
		draft, err := ParseDraftId(draftPart)
		if err != nil {
			return EntityId{}, err
		}
		id.DraftId = &draft
	}
	return id, nil
}

// IsDraft reports whether this EntityId names a draft-branch edition chain.
func (e EntityId) IsDraft() bool { return e.DraftId != nil }

func (e EntityId) String() string {
	if e.DraftId == nil {
		return fmt.Sprintf("%s/%s", e.WebId, e.Uuid)
	}
	return fmt.Sprintf("%s/%s~%s", e.WebId, e.Uuid, e.DraftId)
}

func (e EntityId) Equal(other EntityId) bool {
	if !e.WebId.Equal(other.WebId) || !e.Uuid.Equal(other.Uuid) {
		return false
	}
	switch {
	case e.DraftId == nil && other.DraftId == nil:
		return true
	case e.DraftId == nil || other.DraftId == nil:
		return false
	default:
		return e.DraftId.Equal(*other.DraftId)
	}
}

// EditionProvenance records which actor created (and, if archived, removed)
// one edition of a record.
type EditionProvenance struct {
	CreatedById  ActorId
	ArchivedById *ActorId
}
