package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionedUrlRoundTrip(t *testing.T) {
	v, err := ParseVersionedUrl("https://example.org/type/person/v/1")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v.Version)
	assert.Equal(t, "https://example.org/type/person/", v.Base.String())
	assert.Equal(t, "https://example.org/type/person/v/1", v.String())
}

func TestParseVersionedUrlRejectsMissingVersion(t *testing.T) {
	_, err := ParseVersionedUrl("https://example.org/type/person/")
	require.Error(t, err)
}

func TestNextIncrementsVersion(t *testing.T) {
	v, err := ParseVersionedUrl("https://example.org/type/person/v/1")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v.Next().Version)
}

func TestEntityIdEquality(t *testing.T) {
	web := NewWebId()
	uid := NewEntityUuid()
	a := EntityId{WebId: web, Uuid: uid}
	b := EntityId{WebId: web, Uuid: uid}
	assert.True(t, a.Equal(b))

	draft := NewDraftId()
	c := EntityId{WebId: web, Uuid: uid, DraftId: &draft}
	assert.False(t, a.Equal(c))
	assert.True(t, c.IsDraft())
	assert.False(t, a.IsDraft())
}
