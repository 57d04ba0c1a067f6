package principal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"graphstore.dev/identifier"
	"graphstore.dev/principal"
)

func TestPolicyEvaluatePermitMatchesCondition(t *testing.T) {
	actor := identifier.NewActorId()
	p := principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.All(principal.ActorIdIs(actor), principal.ActionIs("read")),
	}

	decision := p.Evaluate(principal.EvalContext{
		ActorId: actor,
		Action:  "read",
	})
	assert.Equal(t, principal.Permit, decision)
}

func TestPolicyEvaluateAbstainsWhenConditionDoesNotMatch(t *testing.T) {
	p := principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ActionIs("write"),
	}
	decision := p.Evaluate(principal.EvalContext{Action: "read"})
	assert.Equal(t, principal.Abstain, decision)
}

func TestPolicyEvaluateAbstainsWhenArchived(t *testing.T) {
	p := principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ActionIs("read"),
		Archived:  true,
	}
	decision := p.Evaluate(principal.EvalContext{Action: "read"})
	assert.Equal(t, principal.Abstain, decision)
}

func TestPolicySlotOnlyMatchesWhenContextSuppliesIt(t *testing.T) {
	p := principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ActorIdIsSlot(),
	}

	actor := identifier.NewActorId()
	noSlot := p.Evaluate(principal.EvalContext{ActorId: actor})
	assert.Equal(t, principal.Abstain, noSlot, "unbound ?principal must not match without context")

	withSlot := p.Evaluate(principal.EvalContext{ActorId: actor, PrincipalSlot: &actor})
	assert.Equal(t, principal.Permit, withSlot)
}

func TestPolicyDenyEffectYieldsDenyDecision(t *testing.T) {
	p := principal.Policy{
		Effect:    principal.EffectDeny,
		Condition: principal.ResourceKindIs("entity"),
	}
	decision := p.Evaluate(principal.EvalContext{Resource: principal.ResourceRef{Kind: "entity", Id: "x"}})
	assert.Equal(t, principal.Deny, decision)
}

func TestPolicyNotNegatesInnerCondition(t *testing.T) {
	p := principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.Not(principal.ActionIs("delete")),
	}
	assert.Equal(t, principal.Permit, p.Evaluate(principal.EvalContext{Action: "read"}))
	assert.Equal(t, principal.Abstain, p.Evaluate(principal.EvalContext{Action: "delete"}))
}

func TestPolicyActorInGroupChecksMembershipSet(t *testing.T) {
	group := identifier.NewAccountGroupId()
	other := identifier.NewAccountGroupId()
	p := principal.Policy{
		Effect:    principal.EffectPermit,
		Condition: principal.ActorInGroup(group),
	}

	assert.Equal(t, principal.Permit, p.Evaluate(principal.EvalContext{
		MemberOfGroups: map[identifier.AccountGroupId]bool{group: true},
	}))
	assert.Equal(t, principal.Abstain, p.Evaluate(principal.EvalContext{
		MemberOfGroups: map[identifier.AccountGroupId]bool{other: true},
	}))
}
