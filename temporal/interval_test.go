package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) Timestamp {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return TimestampFromTime(t)
}

func TestNewRejectsEmptyInterval(t *testing.T) {
	_, err := New(InclusiveBound(ts("2026-01-01T00:00:00Z")), ExclusiveBound(ts("2026-01-01T00:00:00Z")))
	require.Error(t, err)
}

func TestNewRejectsInclusiveEnd(t *testing.T) {
	_, err := New(InclusiveBound(ts("2026-01-01T00:00:00Z")), InclusiveBound(ts("2026-01-02T00:00:00Z")))
	require.Error(t, err)
}

func TestOverlapsSymmetric(t *testing.T) {
	a := MustNew(InclusiveBound(ts("2026-01-01T00:00:00Z")), ExclusiveBound(ts("2026-01-10T00:00:00Z")))
	b := MustNew(InclusiveBound(ts("2026-01-05T00:00:00Z")), ExclusiveBound(ts("2026-01-15T00:00:00Z")))
	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))

	c := MustNew(InclusiveBound(ts("2026-02-01T00:00:00Z")), UnboundedBound())
	assert.False(t, a.Overlaps(c))
	assert.False(t, c.Overlaps(a))
}

func TestOverlapsImpliesContainsWitness(t *testing.T) {
	a := MustNew(InclusiveBound(ts("2026-01-01T00:00:00Z")), ExclusiveBound(ts("2026-01-10T00:00:00Z")))
	b := MustNew(InclusiveBound(ts("2026-01-05T00:00:00Z")), ExclusiveBound(ts("2026-01-15T00:00:00Z")))
	witness := ts("2026-01-07T00:00:00Z")
	require.True(t, a.Contains(witness))
	require.True(t, b.Contains(witness))
	assert.True(t, a.Overlaps(b))
}

func TestAdjacentIntervalsHaveNoGap(t *testing.T) {
	a := MustNew(InclusiveBound(ts("2026-01-01T00:00:00Z")), ExclusiveBound(ts("2026-01-10T00:00:00Z")))
	b := MustNew(InclusiveBound(ts("2026-01-10T00:00:00Z")), UnboundedBound())
	assert.True(t, a.AdjacentTo(b))
	assert.False(t, a.Overlaps(b))
}

func TestCloseProducesExclusiveEnd(t *testing.T) {
	a := MustNew(InclusiveBound(ts("2026-01-01T00:00:00Z")), UnboundedBound())
	closed, err := a.Close(ts("2026-01-05T00:00:00Z"))
	require.NoError(t, err)
	assert.False(t, closed.Contains(ts("2026-01-05T00:00:00Z")))
	assert.True(t, closed.Contains(ts("2026-01-04T23:59:59Z")))
}

func TestExclusiveStartCanonicalisesToInclusive(t *testing.T) {
	iv := MustNew(ExclusiveBound(ts("2026-01-01T00:00:00Z")), UnboundedBound())
	assert.Equal(t, Inclusive, iv.Start.Kind)
}

func TestResolveDecisionTimeVariableToNow(t *testing.T) {
	now := ts("2026-06-01T00:00:00Z")
	resolved, err := DecisionTimeVariableToNow().Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, TransactionTime, resolved.PinnedAxis)
	assert.True(t, resolved.PinnedAt.Equal(now))
	assert.Equal(t, DecisionTime, resolved.VariableAxis)
	assert.True(t, resolved.Variable.Start.IsUnbounded())
	assert.True(t, resolved.Variable.Contains(now))
}
