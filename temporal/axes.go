package temporal

import (
	"fmt"
	"time"
)

// AxisSelector names which of the two axes a structural query pins to a
// single point versus leaves variable over a bounded interval. Exactly one
// of the pair is pinned and the other variable.
type AxisSelector int

const (
	PinDecisionTime AxisSelector = iota
	PinTransactionTime
)

// UnresolvedBound is an interval bound as it appears in a request, before
// "now" has been substituted for an explicit latest-point reference.
type UnresolvedBound struct {
	Bound      Bound
	UsesLatest bool // true when the caller asked for "as of now" rather than a literal timestamp
}

// QueryTemporalAxes describes the bitemporal window a StructuralQuery reads
// through: one axis collapses to a single instant ("pinned"), the other
// ranges over an interval ("variable") whose bounds may reference "now".
type QueryTemporalAxes struct {
	Pinned       AxisSelector
	PinnedAt     UnresolvedBound
	VariableFrom UnresolvedBound
	VariableTo   UnresolvedBound
}

// Resolved is a QueryTemporalAxes with "now" substituted and both axes
// reduced to concrete ranges: the pinned axis to a single-instant Interval,
// the variable axis to a bounded Interval.
type Resolved struct {
	PinnedAxis   Axis
	PinnedAt     Timestamp
	VariableAxis Axis
	Variable     Interval
}

// Resolve binds "now" and produces the concrete ranges the query compiler
// injects into the emitted SQL's temporal predicates.
func (q QueryTemporalAxes) Resolve(now Timestamp) (Resolved, error) {
	pinnedAt := resolveBound(q.PinnedAt, now)
	if pinnedAt.IsUnbounded() {
		return Resolved{}, fmt.Errorf("temporal: pinned axis cannot resolve to an unbounded instant")
	}

	start := resolveBound(q.VariableFrom, now)
	end := resolveBound(q.VariableTo, now)
	if end.Kind == Inclusive {
		// Interval ends are exclusive: an inclusive end at t is stored as an
		// exclusive end one nanosecond later, the finest step a Timestamp
		// carries, so the resolved interval still contains t.
		end = ExclusiveBound(TimestampFromTime(end.At.Time().Add(time.Nanosecond)))
	}
	variable, err := New(start, end)
	if err != nil {
		return Resolved{}, fmt.Errorf("temporal: resolving variable axis: %w", err)
	}

	var pinnedAxis, variableAxis Axis
	if q.Pinned == PinDecisionTime {
		pinnedAxis, variableAxis = DecisionTime, TransactionTime
	} else {
		pinnedAxis, variableAxis = TransactionTime, DecisionTime
	}

	return Resolved{
		PinnedAxis:   pinnedAxis,
		PinnedAt:     pinnedAt.At,
		VariableAxis: variableAxis,
		Variable:     variable,
	}, nil
}

func resolveBound(b UnresolvedBound, now Timestamp) Bound {
	if b.UsesLatest {
		return InclusiveBound(now)
	}
	return b.Bound
}

// DecisionTimeVariableToNow is a convenience constructor for the common
// request shape: decision-time axis variable over [Unbounded, now],
// transaction-time pinned at now.
func DecisionTimeVariableToNow() QueryTemporalAxes {
	return QueryTemporalAxes{
		Pinned:       PinTransactionTime,
		PinnedAt:     UnresolvedBound{UsesLatest: true},
		VariableFrom: UnresolvedBound{Bound: UnboundedBound()},
		VariableTo:   UnresolvedBound{UsesLatest: true},
	}
}
