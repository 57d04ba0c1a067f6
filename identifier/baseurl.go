// Package identifier provides the typed identifiers the rest of the store
// uses: normalised ontology URLs, versioned URLs, and the disjoint 128-bit
// identifier families for entities, webs, drafts, and principals.
package identifier

import (
	"fmt"
	"net/url"
	"strings"
)

// BaseUrl is a normalised absolute URL identifying an ontology record
// independent of its version. Normalisation guarantees a trailing slash so
// two callers writing "https://example.org/type/person" and
// "https://example.org/type/person/" land on the same BaseUrl.
type BaseUrl struct {
	raw string
}

// ParseBaseUrl validates and normalises s into a BaseUrl.
func ParseBaseUrl(s string) (BaseUrl, error) {
	u, err := url.Parse(s)
	if err != nil {
		return BaseUrl{}, fmt.Errorf("identifier: invalid base url %q: %w", s, err)
	}
	if !u.IsAbs() {
		return BaseUrl{}, fmt.Errorf("identifier: base url %q must be absolute", s)
	}
	normalised := s
	if !strings.HasSuffix(normalised, "/") {
		normalised += "/"
	}
	return BaseUrl{raw: normalised}, nil
}

// String returns the normalised URL string, always trailing-slash terminated.
func (b BaseUrl) String() string { return b.raw }

// IsZero reports whether b is the unset value.
func (b BaseUrl) IsZero() bool { return b.raw == "" }

func (b BaseUrl) Equal(other BaseUrl) bool { return b.raw == other.raw }
