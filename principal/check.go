package principal

import (
	"context"

	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
)

// Check runs the total permission check for req: gather the actor's held
// roles (direct assignments plus every role attached to a group the actor
// is a member of), evaluate each role's policy, and resolve Permit/Deny
// with Deny beating Permit and Deny as the default when no policy matches.
func (s *Store) Check(ctx context.Context, req Request) (Decision, error) {
	key := cacheKey(req)
	if s.cache != nil {
		if d, ok := s.cache.Get(ctx, key); ok {
			return d, nil
		}
	}

	actorKind, err := s.actorKind(ctx, req.ActorId)
	if err != nil {
		return Deny, err
	}

	groups, err := s.groupsOf(ctx, req.ActorId)
	if err != nil {
		return Deny, err
	}
	memberOf := make(map[identifier.AccountGroupId]bool, len(groups))
	for _, g := range groups {
		memberOf[g] = true
	}

	policies, err := s.heldPolicies(ctx, req.ActorId, groups)
	if err != nil {
		return Deny, err
	}

	evalCtx := EvalContext{
		ActorKind:      actorKind,
		ActorId:        req.ActorId,
		Action:         req.Action,
		Resource:       req.Resource,
		MemberOfGroups: memberOf,
		PrincipalSlot:  &req.ActorId,
	}

	sawDeny := false
	sawPermit := false
	for _, p := range policies {
		switch p.Evaluate(evalCtx) {
		case Deny:
			sawDeny = true
		case Permit:
			sawPermit = true
		}
	}
	decision := Deny
	if sawPermit && !sawDeny {
		decision = Permit
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, decision)
	}
	return decision, nil
}

func (s *Store) actorKind(ctx context.Context, actor identifier.ActorId) (ActorKind, error) {
	row := s.pool.QueryRow(ctx, `SELECT kind FROM accounts WHERE actor_id = $1`, actor.String())
	var kind string
	if err := row.Scan(&kind); err != nil {
		return 0, graphstoreerr.NotFound("principal.Check", actor.String())
	}
	switch kind {
	case ActorMachine.String():
		return ActorMachine, nil
	case ActorAi.String():
		return ActorAi, nil
	default:
		return ActorUser, nil
	}
}

func (s *Store) groupsOf(ctx context.Context, actor identifier.ActorId) ([]identifier.AccountGroupId, error) {
	rows, err := s.pool.Query(ctx, `SELECT group_id::text FROM account_group_members WHERE actor_id = $1`, actor.String())
	if err != nil {
		return nil, graphstoreerr.Wrap("principal.Check", err)
	}
	defer rows.Close()

	var out []identifier.AccountGroupId
	for rows.Next() {
		var groupIdStr string
		if err := rows.Scan(&groupIdStr); err != nil {
			return nil, graphstoreerr.Wrap("principal.Check", err)
		}
		id, err := identifier.ParseAccountGroupId(groupIdStr)
		if err != nil {
			return nil, graphstoreerr.Wrap("principal.Check", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// heldPolicies returns the un-archived policies of every role the actor
// holds directly or via membership in groups.
func (s *Store) heldPolicies(ctx context.Context, actor identifier.ActorId, groups []identifier.AccountGroupId) ([]Policy, error) {
	groupStrs := make([]string, len(groups))
	for i, g := range groups {
		groupStrs[i] = g.String()
	}

	rows, err := s.pool.Query(ctx, `
		SELECT effect, policy FROM roles
		WHERE archived = false AND (
			role_id IN (SELECT role_id FROM role_assignments WHERE actor_id = $1)
			OR group_id = ANY($2)
		)
	`, actor.String(), groupStrs)
	if err != nil {
		return nil, graphstoreerr.Wrap("principal.Check", err)
	}
	defer rows.Close()

	var out []Policy
	for rows.Next() {
		var effectStr string
		var conditionJSON []byte
		if err := rows.Scan(&effectStr, &conditionJSON); err != nil {
			return nil, graphstoreerr.Wrap("principal.Check", err)
		}
		condition, err := unmarshalPolicy(conditionJSON)
		if err != nil {
			return nil, graphstoreerr.Wrap("principal.Check", err)
		}
		effect := EffectPermit
		if effectStr == EffectDeny.String() {
			effect = EffectDeny
		}
		out = append(out, Policy{Effect: effect, Condition: condition})
	}
	return out, rows.Err()
}
