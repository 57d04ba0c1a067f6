package principal

import (
	"encoding/json"
	"fmt"

	"graphstore.dev/identifier"
)

// wireCondition mirrors Condition with plain string identifiers in place of
// the typed identifier.* values, the shape actually stored in the policy
// jsonb column: identifier.ActorId etc carry no json.Marshaler of their own,
// so every store-facing boundary converts through this type instead of
// marshaling the domain type directly.
type wireCondition struct {
	Kind ConditionKind `json:"kind"`

	All []wireCondition `json:"all,omitempty"`
	Any []wireCondition `json:"any,omitempty"`
	Not *wireCondition  `json:"not,omitempty"`

	ActorKind    ActorKind `json:"actor_kind,omitempty"`
	ActorId      string    `json:"actor_id,omitempty"`
	Action       string    `json:"action,omitempty"`
	ResourceKind string    `json:"resource_kind,omitempty"`
	ResourceId   string    `json:"resource_id,omitempty"`
	GroupId      string    `json:"group_id,omitempty"`
	Slot         Slot      `json:"slot,omitempty"`
}

func toWire(c Condition) wireCondition {
	w := wireCondition{
		Kind:         c.Kind,
		ActorKind:    c.ActorKind,
		Action:       c.Action,
		ResourceKind: c.ResourceKind,
		ResourceId:   c.ResourceId,
		Slot:         c.Slot,
	}
	if !c.ActorId.IsZero() {
		w.ActorId = c.ActorId.String()
	}
	if !c.GroupId.IsZero() {
		w.GroupId = c.GroupId.String()
	}
	for _, inner := range c.All {
		w.All = append(w.All, toWire(inner))
	}
	for _, inner := range c.Any {
		w.Any = append(w.Any, toWire(inner))
	}
	if c.Not != nil {
		inner := toWire(*c.Not)
		w.Not = &inner
	}
	return w
}

func fromWire(w wireCondition) (Condition, error) {
	c := Condition{
		Kind:         w.Kind,
		ActorKind:    w.ActorKind,
		Action:       w.Action,
		ResourceKind: w.ResourceKind,
		ResourceId:   w.ResourceId,
		Slot:         w.Slot,
	}
	if w.ActorId != "" {
		id, err := identifier.ParseActorId(w.ActorId)
		if err != nil {
			return Condition{}, err
		}
		c.ActorId = id
	}
	if w.GroupId != "" {
		id, err := identifier.ParseAccountGroupId(w.GroupId)
		if err != nil {
			return Condition{}, err
		}
		c.GroupId = id
	}
	for _, inner := range w.All {
		got, err := fromWire(inner)
		if err != nil {
			return Condition{}, err
		}
		c.All = append(c.All, got)
	}
	for _, inner := range w.Any {
		got, err := fromWire(inner)
		if err != nil {
			return Condition{}, err
		}
		c.Any = append(c.Any, got)
	}
	if w.Not != nil {
		got, err := fromWire(*w.Not)
		if err != nil {
			return Condition{}, err
		}
		c.Not = &got
	}
	return c, nil
}

// marshalPolicy serializes a Policy's condition tree to the jsonb form the
// roles.policy column stores.
func marshalPolicy(c Condition) ([]byte, error) {
	data, err := json.Marshal(toWire(c))
	if err != nil {
		return nil, fmt.Errorf("principal: marshaling policy condition: %w", err)
	}
	return data, nil
}

// unmarshalPolicy is marshalPolicy's inverse.
func unmarshalPolicy(data []byte) (Condition, error) {
	var w wireCondition
	if err := json.Unmarshal(data, &w); err != nil {
		return Condition{}, fmt.Errorf("principal: unmarshaling policy condition: %w", err)
	}
	return fromWire(w)
}

// ConditionFromJSON decodes a Condition from the same wire form the
// roles.policy column stores it in, for callers outside this package that
// build Policy values from an external representation (the snapshot
// format's Role/Policy records).
func ConditionFromJSON(data []byte) (Condition, error) { return unmarshalPolicy(data) }

// ConditionToJSON is ConditionFromJSON's inverse.
func ConditionToJSON(c Condition) ([]byte, error) { return marshalPolicy(c) }
