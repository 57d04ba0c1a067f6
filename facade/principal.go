package facade

import (
	"context"

	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/principal"
)

// AccountKind selects which kind of actor CreateAccount installs.
type AccountKind int

const (
	AccountUser AccountKind = iota
	AccountMachine
	AccountAi
)

// CreateAccount installs a new actor of kind. Account creation has no
// resource to authorize against yet — it is gated the same way the
// teacher's own onboarding endpoints are, by requiring a caller with the
// "create_account" action permitted against the well-known "system"
// resource, rather than a resource that does not exist until this call
// returns.
func (svc *Service) CreateAccount(ctx context.Context, caller identifier.ActorId, kind AccountKind) (identifier.ActorId, error) {
	if err := svc.authorize(ctx, "facade.CreateAccount", caller, "create_account", principal.ResourceRef{Kind: "system", Id: "accounts"}); err != nil {
		return identifier.ActorId{}, err
	}
	switch kind {
	case AccountMachine:
		return svc.principal.CreateMachine(ctx)
	case AccountAi:
		return svc.principal.CreateAi(ctx)
	default:
		return svc.principal.CreateUser(ctx)
	}
}

// GroupKind selects which kind of group CreateAccountGroup installs.
type GroupKind int

const (
	GroupTeam GroupKind = iota
	GroupWebTeam
	GroupWeb
)

// CreateAccountGroup installs a new group. owner is required for
// GroupWebTeam/GroupWeb and ignored for GroupTeam.
func (svc *Service) CreateAccountGroup(ctx context.Context, caller identifier.ActorId, kind GroupKind, owner identifier.WebId) (identifier.AccountGroupId, error) {
	if err := svc.authorize(ctx, "facade.CreateAccountGroup", caller, "create_account_group", principal.ResourceRef{Kind: "system", Id: "account_groups"}); err != nil {
		return identifier.AccountGroupId{}, err
	}
	switch kind {
	case GroupWebTeam:
		return svc.principal.CreateWebTeam(ctx, owner)
	case GroupWeb:
		return svc.principal.CreateWebGroup(ctx, owner)
	default:
		return svc.principal.CreateTeam(ctx)
	}
}

// AddAccountGroupMember authorizes and adds actor to group.
func (svc *Service) AddAccountGroupMember(ctx context.Context, caller identifier.ActorId, group identifier.AccountGroupId, actor identifier.ActorId) error {
	if err := svc.authorize(ctx, "facade.AddAccountGroupMember", caller, "add_account_group_member", principal.ResourceRef{Kind: "account_group", Id: group.String()}); err != nil {
		return err
	}
	return svc.principal.AddAccountGroupMember(ctx, group, actor)
}

// RemoveAccountGroupMember authorizes and removes actor from group.
func (svc *Service) RemoveAccountGroupMember(ctx context.Context, caller identifier.ActorId, group identifier.AccountGroupId, actor identifier.ActorId) error {
	if err := svc.authorize(ctx, "facade.RemoveAccountGroupMember", caller, "remove_account_group_member", principal.ResourceRef{Kind: "account_group", Id: group.String()}); err != nil {
		return err
	}
	return svc.principal.RemoveAccountGroupMember(ctx, group, actor)
}

// CheckAccountGroupPermission evaluates whether actor may perform action
// against a resource scoped to group, returning the total decision directly
// rather than translating it into an error — this is the one request-surface
// call whose whole purpose is to report Permit/Deny to the caller instead of
// gating a side effect on it.
func (svc *Service) CheckAccountGroupPermission(ctx context.Context, actor identifier.ActorId, action string, group identifier.AccountGroupId) (principal.Decision, error) {
	decision, err := svc.principal.Check(ctx, principal.Request{
		ActorId:  actor,
		Action:   action,
		Resource: principal.ResourceRef{Kind: "account_group", Id: group.String()},
	})
	if err != nil {
		return principal.Deny, graphstoreerr.Wrap("facade.CheckAccountGroupPermission", err)
	}
	return decision, nil
}
