package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"graphstore.dev/filter"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{Values: []filter.Value{filter.TextValue("hello"), filter.NumberValue(3)}}
	encoded, err := c.Encode()
	require.NoError(t, err)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, c.Values, decoded.Values)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not-base64!!!")
	require.Error(t, err)
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, ErrCursorDecode, qerr.Kind)
}

func TestGraphResolveDepthsIsZero(t *testing.T) {
	assert.True(t, GraphResolveDepths{}.IsZero())
	assert.False(t, GraphResolveDepths{IsOfType: 1}.IsZero())
}
