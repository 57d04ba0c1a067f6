package principal

import "graphstore.dev/identifier"

// Effect is what a policy resolves to when its condition matches a request.
type Effect int

const (
	EffectPermit Effect = iota
	EffectDeny
)

func (e Effect) String() string {
	if e == EffectDeny {
		return "deny"
	}
	return "permit"
}

// ConditionKind discriminates the shape of a Condition node: a boolean
// combinator (All/Any/Not) or a leaf term comparison.
type ConditionKind int

const (
	ConditionAll ConditionKind = iota
	ConditionAny
	ConditionNot
	ConditionActorKindIs
	ConditionActorIdIs
	ConditionActionIs
	ConditionResourceKindIs
	ConditionResourceIdIs
	ConditionActorInGroup
)

// Slot marks a leaf as unbound: it matches whatever value EvalContext
// supplies for that slot rather than a fixed literal. The only slot this
// model names is ?principal, the actor id a context-supplied request binds.
type Slot int

const (
	NoSlot Slot = iota
	PrincipalSlot
)

// Condition is a closed first-order formula over principal kind, principal
// id, action name, resource kind, resource id, and group membership. Leaves
// either compare against a literal or, when Slot is set, against whatever
// value the evaluation context supplies for that slot.
type Condition struct {
	Kind ConditionKind

	All []Condition
	Any []Condition
	Not *Condition

	ActorKind    ActorKind
	ActorId      identifier.ActorId
	Action       string
	ResourceKind string
	ResourceId   string
	GroupId      identifier.AccountGroupId

	Slot Slot
}

func All(conds ...Condition) Condition { return Condition{Kind: ConditionAll, All: conds} }
func Any(conds ...Condition) Condition { return Condition{Kind: ConditionAny, Any: conds} }
func Not(c Condition) Condition        { return Condition{Kind: ConditionNot, Not: &c} }

func ActorKindIs(k ActorKind) Condition { return Condition{Kind: ConditionActorKindIs, ActorKind: k} }
func ActorIdIs(id identifier.ActorId) Condition {
	return Condition{Kind: ConditionActorIdIs, ActorId: id}
}

// ActorIdIsSlot builds a slot-bearing actor-id leaf (?principal), which only
// participates in evaluation when EvalContext.PrincipalSlot is supplied.
func ActorIdIsSlot() Condition { return Condition{Kind: ConditionActorIdIs, Slot: PrincipalSlot} }

func ActionIs(action string) Condition { return Condition{Kind: ConditionActionIs, Action: action} }
func ResourceKindIs(kind string) Condition {
	return Condition{Kind: ConditionResourceKindIs, ResourceKind: kind}
}
func ResourceIdIs(id string) Condition { return Condition{Kind: ConditionResourceIdIs, ResourceId: id} }
func ActorInGroup(g identifier.AccountGroupId) Condition {
	return Condition{Kind: ConditionActorInGroup, GroupId: g}
}

// Policy is a named effect guarded by a condition, attached to exactly one
// role. Policies are immutable once installed (§4.6): a policy is replaced
// by creating a new one and repointing or archiving the role, never mutated
// in place.
type Policy struct {
	Effect    Effect
	Condition Condition
	Archived  bool
}

// EvalContext is the fully-resolved request context a policy condition is
// evaluated against: the concrete actor, action, resource, and the set of
// groups the actor is a transitive member of.
type EvalContext struct {
	ActorKind      ActorKind
	ActorId        identifier.ActorId
	Action         string
	Resource       ResourceRef
	MemberOfGroups map[identifier.AccountGroupId]bool

	// PrincipalSlot, when non-nil, is the value a slot-bearing leaf
	// (ActorIdIsSlot) binds against. A slot-bearing leaf never matches when
	// this is nil, per §4.6: "only used when the slot is supplied by context".
	PrincipalSlot *identifier.ActorId
}

// evaluate reports whether c matches ctx.
func (c Condition) evaluate(ctx EvalContext) bool {
	switch c.Kind {
	case ConditionAll:
		for _, inner := range c.All {
			if !inner.evaluate(ctx) {
				return false
			}
		}
		return true
	case ConditionAny:
		for _, inner := range c.Any {
			if inner.evaluate(ctx) {
				return true
			}
		}
		return false
	case ConditionNot:
		return c.Not != nil && !c.Not.evaluate(ctx)
	case ConditionActorKindIs:
		return ctx.ActorKind == c.ActorKind
	case ConditionActorIdIs:
		if c.Slot == PrincipalSlot {
			return ctx.PrincipalSlot != nil && ctx.ActorId.Equal(*ctx.PrincipalSlot)
		}
		return ctx.ActorId.Equal(c.ActorId)
	case ConditionActionIs:
		return c.Action == "*" || c.Action == ctx.Action
	case ConditionResourceKindIs:
		return c.ResourceKind == ctx.Resource.Kind
	case ConditionResourceIdIs:
		return c.ResourceId == ctx.Resource.Id
	case ConditionActorInGroup:
		return ctx.MemberOfGroups[c.GroupId]
	default:
		return false
	}
}

// Evaluate resolves p against ctx: Abstain if archived or the condition does
// not match, otherwise the policy's Effect translated to a Decision.
func (p Policy) Evaluate(ctx EvalContext) Decision {
	if p.Archived || !p.Condition.evaluate(ctx) {
		return Abstain
	}
	if p.Effect == EffectDeny {
		return Deny
	}
	return Permit
}
