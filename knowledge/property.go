// Package knowledge holds the in-memory shape of entities: their editions,
// property trees, and link endpoints.
package knowledge

import "encoding/json"

// PropertyPath is a sequence of BaseUrl-keyed steps into a property tree,
// mirroring the wire representation of property path segments used by both the
// filter algebra (C4) and property-level provenance lookups.
type PropertyPath []string

// PropertyProvenance carries the per-property confidence and attribution
// metadata recorded alongside each leaf value.
type PropertyProvenance struct {
	Confidence *float64 `json:"confidence,omitempty"`
	Source     string   `json:"source,omitempty"`
}

// Properties is a labelled property tree: a JSON object keyed by property
// BaseUrl, whose leaf values are raw JSON (validated against the owning
// PropertyType's schema by the store layer, not by this package).
type Properties map[string]json.RawMessage

// PropertyMetadataObject is the object produced by nesting each property's
// provenance metadata under a `metadata` key beside the `value` key,
// keeping value and metadata in separate fields rather than collapsing them.
type PropertyMetadataObject struct {
	Values   Properties                     `json:"value"`
	Metadata map[string]PropertyProvenance `json:"metadata,omitempty"`
}

// Get returns the raw value at a single-segment property path, and whether
// it was present.
func (p Properties) Get(baseUrl string) (json.RawMessage, bool) {
	v, ok := p[baseUrl]
	return v, ok
}

// Merge returns a new Properties with patch's keys overlaid on p, the
// operation patch_entity (C6) uses to apply a partial property update.
func (p Properties) Merge(patch Properties) Properties {
	out := make(Properties, len(p)+len(patch))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
