// Package ontology holds the in-memory shape of data types, property types,
// and entity types: schema body, ownership, provenance, and the inheritance
// / constraint closures computed from an entity type's schema.
package ontology

import (
	"encoding/json"
	"fmt"

	"graphstore.dev/identifier"
	"graphstore.dev/temporal"
)

// OwnershipKind discriminates who is responsible for an ontology record's
// schema body.
type OwnershipKind int

const (
	// Owned means a web on this instance is the schema's authority.
	Owned OwnershipKind = iota
	// External means the schema was fetched from a remote instance.
	External
)

// Ownership is a closed tagged variant: Owned carries the owning web,
// External carries the fetch timestamp.
type Ownership struct {
	Kind      OwnershipKind
	WebId     identifier.WebId  // set when Kind == Owned
	FetchedAt temporal.Timestamp // set when Kind == External
}

func OwnedBy(web identifier.WebId) Ownership {
	return Ownership{Kind: Owned, WebId: web}
}

func ExternalFetchedAt(at temporal.Timestamp) Ownership {
	return Ownership{Kind: External, FetchedAt: at}
}

// Kind discriminates which concrete ontology record a RecordId or Record
// refers to. Modelled as a closed tagged variant over record kinds,
// pattern-matched rather than dispatched through an interface table.
type Kind int

const (
	KindDataType Kind = iota
	KindPropertyType
	KindEntityType
)

func (k Kind) String() string {
	switch k {
	case KindDataType:
		return "data_type"
	case KindPropertyType:
		return "property_type"
	case KindEntityType:
		return "entity_type"
	default:
		return "unknown_ontology_kind"
	}
}

// Edition is the common header every ontology record (DataType, PropertyType,
// EntityType) carries: its versioned identity, ownership, provenance, and
// transaction-time interval. Ontology records only ever carry the
// transaction-time axis — decision time is a knowledge-record concept.
type Edition struct {
	RecordId   identifier.OntologyTypeRecordId
	Ownership  Ownership
	Provenance identifier.EditionProvenance
	Transaction temporal.Interval
}

// IsLatest reports whether this edition is currently open-ended, i.e. has
// not been superseded by a later version or archived.
func (e Edition) IsLatest() bool { return e.Transaction.End.IsUnbounded() }

// DataType is a schema-less leaf value type (e.g. "text", "number").
type DataType struct {
	Edition
	Schema json.RawMessage
	Title  string
}

// PropertyType names a property and the data types / property types its
// value may take.
type PropertyType struct {
	Edition
	Schema json.RawMessage
	Title  string
}

// EntityType is the schema for an entity: its own property/link constraints
// plus edges into the inheritance and constraint closures computed from
// these direct references (InheritanceClosure walks the inheritance edges).
type EntityType struct {
	Edition
	Schema   json.RawMessage
	Title    string
	Abstract bool

	// InheritsFrom lists the EntityType versioned URLs named directly by
	// this type's "allOf" schema clause, before closure computation.
	InheritsFrom []identifier.VersionedUrl
	// ConstrainsPropertiesOn lists the PropertyType versioned URLs this
	// type's schema references directly.
	ConstrainsPropertiesOn []identifier.VersionedUrl
	// ConstrainsLinksOn / ConstrainsLinkDestinationsOn list the EntityType
	// versioned URLs this type permits as outgoing link types / link
	// destinations, respectively.
	ConstrainsLinksOn            []identifier.VersionedUrl
	ConstrainsLinkDestinationsOn []identifier.VersionedUrl
}

// ReservedLinkTypeBaseUrl is the well-known BaseUrl every link EntityType
// must transitively inherit from.
var ReservedLinkTypeBaseUrl = mustParseReserved("https://blockprotocol.org/@blockprotocol/types/entity-type/link/")

func mustParseReserved(s string) identifier.BaseUrl {
	b, err := identifier.ParseBaseUrl(s)
	if err != nil {
		panic(fmt.Sprintf("ontology: invalid reserved base url: %v", err))
	}
	return b
}
