// Package principal implements the actor/group/role/policy model and the
// permission check: gather the roles an actor holds (directly or through
// group membership), evaluate each held role's policy against the requested
// action and resource, and resolve Permit/Deny with Deny taking precedence.
package principal

import (
	"graphstore.dev/identifier"
)

// ActorKind discriminates the three flavours of principal able to act.
type ActorKind int

const (
	ActorUser ActorKind = iota
	ActorMachine
	ActorAi
)

func (k ActorKind) String() string {
	switch k {
	case ActorMachine:
		return "machine"
	case ActorAi:
		return "ai"
	default:
		return "user"
	}
}

// Actor is a principal capable of performing an action. Roles are held by
// reference (RoleId); group membership is resolved separately through the
// groups a Web/Team/WebTeam records, not stored on the actor itself.
type Actor struct {
	Id    identifier.ActorId
	Kind  ActorKind
	Roles []identifier.RoleId
}

// GroupKind discriminates the three flavours of principal group.
type GroupKind int

const (
	GroupWeb GroupKind = iota
	GroupTeam
	GroupWebTeam
)

func (k GroupKind) String() string {
	switch k {
	case GroupTeam:
		return "team"
	case GroupWebTeam:
		return "web_team"
	default:
		return "web"
	}
}

// Group is a principal group: a realm (Web), a free-standing team (Team),
// or a team owned by a web (WebTeam). Members are actors; WebTeam additionally
// records the owning WebId.
type Group struct {
	Id         identifier.AccountGroupId
	Kind       GroupKind
	OwnerWebId *identifier.WebId // set only when Kind == GroupWebTeam
	Members    []identifier.ActorId
}

// Role attaches to exactly one group and grants the permissions its Policy
// evaluates to Permit for. Roles are assigned to actors by reference; an
// actor holds a role either directly or via membership in the role's group.
type Role struct {
	Id      identifier.RoleId
	GroupId identifier.AccountGroupId
	Name    string
	Policy  Policy
}

// Decision is the outcome of evaluating a single policy against a request.
type Decision int

const (
	Abstain Decision = iota
	Permit
	Deny
)

// ResourceRef names the resource a permission check is evaluated against: a
// resource kind (e.g. "entity", "entity_type") and its string identity.
type ResourceRef struct {
	Kind string
	Id   string
}

// Request is the input to a permission check: the acting principal, the
// action requested, and the resource it would apply to.
type Request struct {
	ActorId  identifier.ActorId
	Action   string
	Resource ResourceRef
}
