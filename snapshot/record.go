// Package snapshot implements the line-delimited JSON dump/restore format:
// a lazy sequence of typed records (data type, property type, entity type,
// entity, principal, role, policy) that can be replayed into an empty store
// to reconstruct it, or produced from a live store for backup/migration.
package snapshot

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the seven record shapes the format carries. Encounter
// order in the stream is not significant; the restorer resolves dependency
// order itself.
type Kind string

const (
	KindDataType     Kind = "DataType"
	KindPropertyType Kind = "PropertyType"
	KindEntityType   Kind = "EntityType"
	KindEntity       Kind = "Entity"
	KindPrincipal    Kind = "Principal"
	KindRole         Kind = "Role"
	KindPolicy       Kind = "Policy"
)

// envelope is the wire shape of one line: a kind tag plus the raw payload,
// deferred-decoded once the tag is known.
type envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"-"`
}

func (e *envelope) UnmarshalJSON(data []byte) error {
	var tagged struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("snapshot: malformed record line: %w", err)
	}
	e.Kind = tagged.Kind
	e.Payload = append(json.RawMessage(nil), data...)
	return nil
}

// DataTypeRecord is the restorable shape of one DataType edition.
type DataTypeRecord struct {
	BaseUrl     string          `json:"baseUrl"`
	Version     uint32          `json:"version"`
	Schema      json.RawMessage `json:"schema"`
	Title       string          `json:"title"`
	OwnerWebId  string          `json:"ownerWebId,omitempty"`
}

func (r DataTypeRecord) validate() error {
	if r.BaseUrl == "" {
		return fmt.Errorf("data type: baseUrl is required")
	}
	if r.Version == 0 {
		return fmt.Errorf("data type: version must be >= 1")
	}
	if len(r.Schema) == 0 {
		return fmt.Errorf("data type: schema is required")
	}
	return nil
}

// PropertyTypeRecord is the restorable shape of one PropertyType edition.
type PropertyTypeRecord struct {
	BaseUrl    string          `json:"baseUrl"`
	Version    uint32          `json:"version"`
	Schema     json.RawMessage `json:"schema"`
	Title      string          `json:"title"`
	OwnerWebId string          `json:"ownerWebId,omitempty"`
}

func (r PropertyTypeRecord) validate() error {
	if r.BaseUrl == "" {
		return fmt.Errorf("property type: baseUrl is required")
	}
	if r.Version == 0 {
		return fmt.Errorf("property type: version must be >= 1")
	}
	if len(r.Schema) == 0 {
		return fmt.Errorf("property type: schema is required")
	}
	return nil
}

// EntityTypeRecord is the restorable shape of one EntityType edition. The
// InheritsFrom/Constrains* lists are the raw schema references; the closure
// tables are never part of the wire format, they are recomputed by the
// store when the record is installed.
type EntityTypeRecord struct {
	BaseUrl                      string          `json:"baseUrl"`
	Version                      uint32          `json:"version"`
	Schema                       json.RawMessage `json:"schema"`
	Title                        string          `json:"title"`
	Abstract                     bool            `json:"abstract,omitempty"`
	OwnerWebId                   string          `json:"ownerWebId,omitempty"`
	InheritsFrom                 []string        `json:"inheritsFrom,omitempty"`
	ConstrainsPropertiesOn       []string        `json:"constrainsPropertiesOn,omitempty"`
	ConstrainsLinksOn            []string        `json:"constrainsLinksOn,omitempty"`
	ConstrainsLinkDestinationsOn []string        `json:"constrainsLinkDestinationsOn,omitempty"`
}

func (r EntityTypeRecord) validate() error {
	if r.BaseUrl == "" {
		return fmt.Errorf("entity type: baseUrl is required")
	}
	if r.Version == 0 {
		return fmt.Errorf("entity type: version must be >= 1")
	}
	if len(r.Schema) == 0 {
		return fmt.Errorf("entity type: schema is required")
	}
	return nil
}

// EntityLinkRecord carries a link entity's endpoints; nil unless the entity
// it's attached to is a link.
type EntityLinkRecord struct {
	LeftWebId     string `json:"leftWebId"`
	LeftUuid      string `json:"leftUuid"`
	LeftDraftId   string `json:"leftDraftId,omitempty"`
	RightWebId    string `json:"rightWebId"`
	RightUuid     string `json:"rightUuid"`
	RightDraftId  string `json:"rightDraftId,omitempty"`
}

// EntityRecord is one bitemporal edition of one entity. Multiple records
// sharing the same WebId/Uuid/DraftId are replayed in DecisionTime order:
// the earliest becomes the initial edition, the rest are applied as patches.
type EntityRecord struct {
	WebId      string            `json:"webId"`
	Uuid       string            `json:"uuid"`
	DraftId    string            `json:"draftId,omitempty"`
	Properties json.RawMessage   `json:"properties"`
	Types      []string          `json:"types"`
	DecisionAt string            `json:"decisionAt,omitempty"`
	Link       *EntityLinkRecord `json:"link,omitempty"`
}

func (r EntityRecord) validate() error {
	if r.WebId == "" || r.Uuid == "" {
		return fmt.Errorf("entity: webId and uuid are required")
	}
	if len(r.Types) == 0 {
		return fmt.Errorf("entity %s/%s: at least one type is required", r.WebId, r.Uuid)
	}
	if len(r.Properties) == 0 {
		return fmt.Errorf("entity %s/%s: properties is required", r.WebId, r.Uuid)
	}
	return nil
}

// PrincipalRecord restores one web, actor, or group. Exactly the fields
// relevant to PrincipalKind are populated; the rest are ignored.
type PrincipalRecord struct {
	PrincipalKind string   `json:"principalKind"` // web | user | machine | ai | team | web_team
	Id            string   `json:"id"`
	OwnerWebId    string   `json:"ownerWebId,omitempty"`
	Members       []string `json:"members,omitempty"`
}

func (r PrincipalRecord) validate() error {
	switch r.PrincipalKind {
	case "web", "user", "machine", "ai", "team", "web_team":
	default:
		return fmt.Errorf("principal: unknown principalKind %q", r.PrincipalKind)
	}
	if r.Id == "" {
		return fmt.Errorf("principal: id is required")
	}
	if r.PrincipalKind == "web_team" && r.OwnerWebId == "" {
		return fmt.Errorf("principal %s: web_team requires ownerWebId", r.Id)
	}
	return nil
}

// PolicyRecord pre-declares a named, reusable policy body that a RoleRecord
// can reference by PolicyRef instead of embedding inline.
type PolicyRecord struct {
	PolicyRef string          `json:"policyRef"`
	Effect    string          `json:"effect"` // permit | deny
	Condition json.RawMessage `json:"condition"`
	Archived  bool            `json:"archived,omitempty"`
}

func (r PolicyRecord) validate() error {
	if r.PolicyRef == "" {
		return fmt.Errorf("policy: policyRef is required")
	}
	if r.Effect != "permit" && r.Effect != "deny" {
		return fmt.Errorf("policy %s: effect must be permit or deny", r.PolicyRef)
	}
	if len(r.Condition) == 0 && r.PolicyRef != "" {
		return fmt.Errorf("policy %s: condition is required", r.PolicyRef)
	}
	return nil
}

// RoleRecord restores one role attached to a group. Either Effect+Condition
// are populated directly, or PolicyRef names a PolicyRecord seen elsewhere
// in the stream.
type RoleRecord struct {
	RoleRef   string          `json:"roleRef"`
	GroupId   string          `json:"groupId"`
	Name      string          `json:"name"`
	Effect    string          `json:"effect,omitempty"`
	Condition json.RawMessage `json:"condition,omitempty"`
	PolicyRef string          `json:"policyRef,omitempty"`
	Assignees []string        `json:"assignees,omitempty"`
}

func (r RoleRecord) validate() error {
	if r.RoleRef == "" {
		return fmt.Errorf("role: roleRef is required")
	}
	if r.GroupId == "" {
		return fmt.Errorf("role %s: groupId is required", r.RoleRef)
	}
	if r.PolicyRef == "" && r.Effect == "" {
		return fmt.Errorf("role %s: either policyRef or an inline effect is required", r.RoleRef)
	}
	return nil
}
