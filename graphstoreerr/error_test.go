package graphstoreerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap("store.CreateEntity", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesKind(t *testing.T) {
	err := NotFound("store.GetEntity", "web/123")
	assert.True(t, Is(err, NotFoundKind))
	assert.False(t, Is(err, Conflict))
}

func TestErrorMessageIncludesResource(t *testing.T) {
	err := Exists("store.CreateEntityType", "https://example.org/type/person/v/1")
	assert.Contains(t, err.Error(), "already_exists")
	assert.Contains(t, err.Error(), "person")
}
