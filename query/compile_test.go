package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"graphstore.dev/filter"
	"graphstore.dev/temporal"
)

func now(t *testing.T) temporal.Timestamp {
	parsed, err := time.Parse(time.RFC3339, "2026-07-31T12:00:00Z")
	require.NoError(t, err)
	return temporal.TimestampFromTime(parsed)
}

func TestCompileSimpleEquality(t *testing.T) {
	q := StructuralQuery{
		Filter: filter.Equal(
			filter.PathOperand(filter.Path{Kind: filter.PathWebId}),
			filter.ParameterOperand(filter.Value{Type: filter.TypeUuid, Uuid: "11111111-1111-1111-1111-111111111111"}),
		),
		Temporal: temporal.DecisionTimeVariableToNow(),
		Limit:    10,
	}

	compiled, err := Compile(q, now(t))
	require.NoError(t, err)
	assert.Contains(t, compiled.SQL, "e.web_id = $1")
	assert.Contains(t, compiled.SQL, "LIMIT 10")
	assert.Equal(t, []any{"11111111-1111-1111-1111-111111111111"}, compiled.Args)
}

func TestCompileDeduplicatesRepeatedJoin(t *testing.T) {
	leftName := filter.Equal(
		filter.PathOperand(filter.Path{Kind: filter.PathOutgoingLinks, Nested: &filter.Path{Kind: filter.PathWebId}}),
		filter.ParameterOperand(filter.Value{Type: filter.TypeUuid, Uuid: "a"}),
	)
	leftOther := filter.Equal(
		filter.PathOperand(filter.Path{Kind: filter.PathOutgoingLinks, Nested: &filter.Path{Kind: filter.PathDraftId}}),
		filter.ParameterOperand(filter.Value{Type: filter.TypeUuid, Uuid: "b"}),
	)
	q := StructuralQuery{
		Filter:   filter.All(leftName, leftOther),
		Temporal: temporal.DecisionTimeVariableToNow(),
	}

	compiled, err := Compile(q, now(t))
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(compiled.SQL, "LEFT JOIN entities AS entities_0_0"))
}

func TestCompileOrBranchGetsFreshAlias(t *testing.T) {
	left := filter.Equal(
		filter.PathOperand(filter.Path{Kind: filter.PathOutgoingLinks, Nested: &filter.Path{Kind: filter.PathWebId}}),
		filter.ParameterOperand(filter.Value{Type: filter.TypeUuid, Uuid: "a"}),
	)
	right := filter.Equal(
		filter.PathOperand(filter.Path{Kind: filter.PathOutgoingLinks, Nested: &filter.Path{Kind: filter.PathWebId}}),
		filter.ParameterOperand(filter.Value{Type: filter.TypeUuid, Uuid: "b"}),
	)
	q := StructuralQuery{
		Filter:   filter.Any(left, right),
		Temporal: temporal.DecisionTimeVariableToNow(),
	}

	compiled, err := Compile(q, now(t))
	require.NoError(t, err)
	assert.Equal(t, 2, countOccurrences(compiled.SQL, "LEFT JOIN entities AS entities_"))
}

func TestCompileRejectsTypeMismatch(t *testing.T) {
	q := StructuralQuery{
		Filter: filter.Greater(
			filter.PathOperand(filter.Path{Kind: filter.PathUuid}),
			filter.ParameterOperand(filter.Value{Type: filter.TypeUuid, Uuid: "a"}),
		),
		Temporal: temporal.DecisionTimeVariableToNow(),
	}
	_, err := Compile(q, now(t))
	require.Error(t, err)
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
}

func TestCompileIsDeterministic(t *testing.T) {
	q := StructuralQuery{
		Filter: filter.Equal(
			filter.PathOperand(filter.Path{Kind: filter.PathWebId}),
			filter.ParameterOperand(filter.Value{Type: filter.TypeUuid, Uuid: "x"}),
		),
		Temporal: temporal.DecisionTimeVariableToNow(),
	}
	first, err := Compile(q, now(t))
	require.NoError(t, err)
	second, err := Compile(q, now(t))
	require.NoError(t, err)
	assert.Equal(t, first.SQL, second.SQL)
	assert.Equal(t, first.Args, second.Args)
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}
