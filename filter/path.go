package filter

import (
	"fmt"

	"graphstore.dev/knowledge"
)

// RecordKind names a kind of record: an entity, or one of the three ontology
// record kinds. Path variants exist for entity records only: PathKind and
// ParsePath cover an entity's attributes, and EntityTypePath the smaller
// variant set of an entity's type; no Path navigates an ontology record.
type RecordKind int

const (
	RecordEntity RecordKind = iota
	RecordDataType
	RecordPropertyType
	RecordEntityType
)

// PathKind enumerates the navigable attributes of an entity record. Modelled
// as a closed tagged variant: a Path carries exactly the payload its Kind
// requires, and nothing else is ever populated.
type PathKind int

const (
	PathUuid PathKind = iota
	PathWebId
	PathDraftId
	PathType
	PathProperties
	PathOutgoingLinks
	PathIncomingLinks
	PathLeftEntityUuid
	PathRightEntityUuid
	PathEditionCreatedById
	PathArchivedById
	PathDecisionTime
	PathTransactionTime
)

func (k PathKind) token() string {
	switch k {
	case PathUuid:
		return "uuid"
	case PathWebId:
		return "webId"
	case PathDraftId:
		return "draftId"
	case PathType:
		return "type"
	case PathProperties:
		return "properties"
	case PathOutgoingLinks:
		return "outgoingLinks"
	case PathIncomingLinks:
		return "incomingLinks"
	case PathLeftEntityUuid:
		return "leftEntityUuid"
	case PathRightEntityUuid:
		return "rightEntityUuid"
	case PathEditionCreatedById:
		return "editionCreatedById"
	case PathArchivedById:
		return "archivedById"
	case PathDecisionTime:
		return "decisionTime"
	case PathTransactionTime:
		return "transactionTime"
	default:
		return "unknown"
	}
}

var pathTokens = map[string]PathKind{
	"uuid":               PathUuid,
	"webId":               PathWebId,
	"draftId":             PathDraftId,
	"type":                PathType,
	"properties":          PathProperties,
	"outgoingLinks":       PathOutgoingLinks,
	"incomingLinks":       PathIncomingLinks,
	"leftEntityUuid":      PathLeftEntityUuid,
	"rightEntityUuid":     PathRightEntityUuid,
	"editionCreatedById":  PathEditionCreatedById,
	"archivedById":        PathArchivedById,
	"decisionTime":        PathDecisionTime,
	"transactionTime":     PathTransactionTime,
}

// EntityTypePathKind enumerates the attributes reachable through Path's
// Type variant: `Type(EntityTypePath)` in the algebra.
type EntityTypePathKind int

const (
	EntityTypeBaseUrl EntityTypePathKind = iota
	EntityTypeVersion
)

// EntityTypePath is the nested variant a Path's PathType payload carries.
type EntityTypePath struct {
	Kind EntityTypePathKind
}

func (p EntityTypePath) ExpectedType() ValueType {
	if p.Kind == EntityTypeVersion {
		return TypeNumber
	}
	return TypeBaseUrl
}

// Path is a single navigable attribute of an entity record. Only the fields
// relevant to Kind are populated:
//
//	PathType           -> Type
//	PathProperties     -> Property (nil means "the whole property tree")
//	PathOutgoingLinks,
//	PathIncomingLinks  -> Nested (the EntityPath reached by following the edge)
//
// Nested variants recurse lazily: building `OutgoingLinks -> Properties(p)`
// is just `Path{Kind: PathOutgoingLinks, Nested: &Path{Kind: PathProperties, Property: p}}`.
type Path struct {
	Kind     PathKind
	Type     *EntityTypePath
	Property knowledge.PropertyPath
	Nested   *Path
}

// ExpectedType returns the ValueType a Path's terminal value must satisfy,
// recursing through OutgoingLinks/IncomingLinks to the nested path's type.
func (p Path) ExpectedType() ValueType {
	switch p.Kind {
	case PathUuid, PathWebId, PathDraftId, PathLeftEntityUuid, PathRightEntityUuid, PathEditionCreatedById, PathArchivedById:
		return TypeUuid
	case PathType:
		if p.Type != nil {
			return p.Type.ExpectedType()
		}
		return TypeVersionedUrl
	case PathProperties:
		if p.Property == nil {
			return TypeJson
		}
		return TypeAny
	case PathOutgoingLinks, PathIncomingLinks:
		if p.Nested != nil {
			return p.Nested.ExpectedType()
		}
		return TypeAny
	case PathDecisionTime, PathTransactionTime:
		return TypeTimestamp
	default:
		return TypeAny
	}
}

// String renders p back into its dotted wire-segment form, the form
// store diagnostics and error messages address a path by.
func (p Path) String() string {
	token := p.Kind.token()
	switch p.Kind {
	case PathType:
		if p.Type == nil {
			return token
		}
		if p.Type.Kind == EntityTypeVersion {
			return token + ".version"
		}
		return token + ".baseUrl"
	case PathProperties:
		if len(p.Property) == 0 {
			return token
		}
		out := token
		for _, seg := range p.Property {
			out += "." + seg
		}
		return out
	case PathOutgoingLinks, PathIncomingLinks:
		if p.Nested == nil {
			return token
		}
		return token + "." + p.Nested.String()
	default:
		return token
	}
}

// ParsePath deserializes a Path from a sequence of wire segments, e.g.
// ["properties", "https://example.org/property-type/name/"] or
// ["outgoingLinks", "type", "baseUrl"]. An unrecognised leading token fails
// with an error enumerating the accepted tokens at that position.
func ParsePath(segments []string) (Path, error) {
	if len(segments) == 0 {
		return Path{}, &Error{Kind: ErrPathUnknown, Message: "empty path"}
	}
	kind, ok := pathTokens[segments[0]]
	if !ok {
		return Path{}, &Error{Kind: ErrPathUnknown, Message: fmt.Sprintf("unknown path segment %q, accepted: %s", segments[0], acceptedTokens())}
	}
	rest := segments[1:]

	switch kind {
	case PathType:
		if len(rest) == 0 {
			return Path{Kind: PathType}, nil
		}
		etp, err := parseEntityTypePath(rest)
		if err != nil {
			return Path{}, err
		}
		return Path{Kind: PathType, Type: &etp}, nil

	case PathProperties:
		if len(rest) == 0 {
			return Path{Kind: PathProperties}, nil
		}
		return Path{Kind: PathProperties, Property: knowledge.PropertyPath(rest)}, nil

	case PathOutgoingLinks, PathIncomingLinks:
		if len(rest) == 0 {
			return Path{Kind: kind}, nil
		}
		nested, err := ParsePath(rest)
		if err != nil {
			return Path{}, err
		}
		return Path{Kind: kind, Nested: &nested}, nil

	default:
		if len(rest) != 0 {
			return Path{}, &Error{Kind: ErrPathUnknown, Message: fmt.Sprintf("path segment %q does not accept further segments", segments[0])}
		}
		return Path{Kind: kind}, nil
	}
}

func parseEntityTypePath(segments []string) (EntityTypePath, error) {
	if len(segments) != 1 {
		return EntityTypePath{}, &Error{Kind: ErrPathUnknown, Message: "type path expects exactly one of: baseUrl, version"}
	}
	switch segments[0] {
	case "baseUrl":
		return EntityTypePath{Kind: EntityTypeBaseUrl}, nil
	case "version":
		return EntityTypePath{Kind: EntityTypeVersion}, nil
	default:
		return EntityTypePath{}, &Error{Kind: ErrPathUnknown, Message: fmt.Sprintf("unknown type path segment %q, accepted: baseUrl, version", segments[0])}
	}
}

func acceptedTokens() string {
	out := ""
	for token := range pathTokens {
		if out != "" {
			out += ", "
		}
		out += token
	}
	return out
}
