package temporal

import "fmt"

// Interval is a closed-open (left-closed, right-open) span of time on a
// single axis: [Start, End). The right bound may be Unbounded; the left
// bound may also be Unbounded (meaning "since always"). Empty intervals are
// rejected by New so that every live Interval value denotes a non-empty set
// of instants.
type Interval struct {
	Start Bound
	End   Bound
}

// New constructs an Interval, canonicalising it to left-closed/right-open
// form and rejecting empty or inverted spans.
//
// Canonicalisation: an Exclusive start is converted to the equivalent
// Inclusive start at the same instant (there is no earlier instant that
// changes membership), and an Inclusive end is converted to Exclusive at
// the instant immediately following is NOT performed here — instead an
// Inclusive end is simply disallowed; callers must supply Exclusive or
// Unbounded on the right, matching the backend's tstzrange "[)" convention
// (QueryTemporalAxes.Resolve makes that conversion for a resolved "now").
func New(start, end Bound) (Interval, error) {
	if start.Kind == Exclusive {
		start = Bound{Kind: Inclusive, At: start.At}
	}
	if end.Kind == Inclusive {
		return Interval{}, fmt.Errorf("temporal: interval end must be exclusive or unbounded, got inclusive bound at %s", end.At)
	}
	iv := Interval{Start: start, End: end}
	if iv.isEmpty() {
		return Interval{}, fmt.Errorf("temporal: empty interval %s", iv)
	}
	return iv, nil
}

// MustNew is New but panics on error; reserved for constants and tests.
func MustNew(start, end Bound) Interval {
	iv, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// FromNowUnbounded returns the canonical "[now, +inf)" interval new editions
// are stamped with on creation.
func FromNowUnbounded(now Timestamp) Interval {
	return Interval{Start: InclusiveBound(now), End: UnboundedBound()}
}

func (iv Interval) isEmpty() bool {
	if iv.Start.Kind == Unbounded || iv.End.Kind == Unbounded {
		return false
	}
	// Start is always canonicalised to Inclusive by New; End is always
	// Exclusive or Unbounded. [t, t) is empty.
	return !iv.Start.At.Before(iv.End.At)
}

// Contains reports whether the instant t falls within the interval.
func (iv Interval) Contains(t Timestamp) bool {
	if !iv.Start.IsUnbounded() && t.Before(iv.Start.At) {
		return false
	}
	if !iv.Start.IsUnbounded() && iv.Start.Kind == Exclusive && t.Equal(iv.Start.At) {
		return false
	}
	if !iv.End.IsUnbounded() {
		if t.After(iv.End.At) {
			return false
		}
		if t.Equal(iv.End.At) {
			return false // right bound is always exclusive in canonical form
		}
	}
	return true
}

// Overlaps reports whether iv and other share at least one instant.
//
// Overlaps is symmetric, and if both intervals contain some instant t they
// necessarily overlap.
func (iv Interval) Overlaps(other Interval) bool {
	// Two intervals overlap iff each interval's start precedes the other's
	// end (in closed-open arithmetic: start_a < end_b && start_b < end_a).
	return lessStartEnd(iv.Start, other.End) && lessStartEnd(other.Start, iv.End)
}

// lessStartEnd reports whether a start bound precedes an end bound, i.e.
// whether the half-open interval beginning at start could contain any
// instant before the half-open interval ending at end closes.
func lessStartEnd(start, end Bound) bool {
	if start.IsUnbounded() || end.IsUnbounded() {
		return true
	}
	return start.At.Before(end.At)
}

// AdjacentTo reports whether iv and other are disjoint but share a boundary
// with no gap between them (iv.End == other.Start or vice versa), the
// condition used by the "no history gaps" testable property.
func (iv Interval) AdjacentTo(other Interval) bool {
	if iv.Overlaps(other) {
		return false
	}
	return boundsMeet(iv.End, other.Start) || boundsMeet(other.End, iv.Start)
}

func boundsMeet(end, start Bound) bool {
	if end.IsUnbounded() || start.IsUnbounded() {
		return false
	}
	return end.At.Equal(start.At)
}

// Close returns iv with its End bound replaced by an exclusive bound at t,
// the operation used when an edition's transaction interval is closed at
// "now" during update/archive.
func (iv Interval) Close(t Timestamp) (Interval, error) {
	return New(iv.Start, ExclusiveBound(t))
}

// Intersect returns the overlap of iv and other, or false if they don't
// overlap.
func (iv Interval) Intersect(other Interval) (Interval, bool) {
	if !iv.Overlaps(other) {
		return Interval{}, false
	}
	start := iv.Start
	if compareAsLeft(other.Start, start) > 0 {
		start = other.Start
	}
	end := iv.End
	if compareAsRight(other.End, end) < 0 {
		end = other.End
	}
	out, err := New(start, end)
	if err != nil {
		return Interval{}, false
	}
	return out, true
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s, %s", iv.Start.String('l'), iv.End.String('r'))
}
