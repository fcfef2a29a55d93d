package generator

import (
	"strings"

	"github.com/fish2000/halogen/pipe"
)

// DefaultMaxUniqueValues is how many distinct values a single constraint
// position may accumulate across builds before TrackValues reports an error.
const DefaultMaxUniqueValues = 2

// ValueTracker detects constraint divergence across the multiple builds of
// one generator (for example one build per target): each named parameter's
// constraint tuple is recorded position by position, and a position
// accumulating more than the allowed number of distinct values is reported
// as an error, since the resulting object files could not be linked
// together.
//
// A tracker is confined to the Context that owns it; share one across
// contexts with WithValueTracker when building the same generator for
// several targets.
type ValueTracker struct {
	maxUniqueValues int
	history         map[string][][]pipe.Expr
}

// NewValueTracker returns a tracker allowing DefaultMaxUniqueValues
// distinct values per constraint position.
func NewValueTracker() *ValueTracker {
	return NewValueTrackerWithLimit(DefaultMaxUniqueValues)
}

// NewValueTrackerWithLimit returns a tracker allowing up to maxUniqueValues
// distinct values per constraint position.
func NewValueTrackerWithLimit(maxUniqueValues int) *ValueTracker {
	if maxUniqueValues < 1 {
		internalErrorf("a ValueTracker needs a limit of at least 1, got %d", maxUniqueValues)
	}
	return &ValueTracker{
		maxUniqueValues: maxUniqueValues,
		history:         make(map[string][][]pipe.Expr),
	}
}

// TrackValues records one constraint tuple for name. The first tuple seen
// for a name seeds one history per position; later tuples of a different
// length are an internal error. Each position keeps its own value history:
// a new value is appended only when it differs from that position's most
// recent entry, so a position that alternates between two values still
// grows past the limit. Exceeding the limit at any position is a user
// error listing every value that position took on.
func (t *ValueTracker) TrackValues(name string, values []pipe.Expr) {
	history, found := t.history[name]
	if !found {
		history = make([][]pipe.Expr, len(values))
		for i, v := range values {
			history[i] = []pipe.Expr{v}
		}
		t.history[name] = history
		return
	}
	if len(history) != len(values) {
		internalErrorf("parameter %q was tracked with %d values, expected %d",
			name, len(values), len(history))
	}
	for i, v := range values {
		last := history[i][len(history[i])-1]
		if exprsMatch(last, v) {
			continue
		}
		history[i] = append(history[i], v)
		if len(history[i]) > t.maxUniqueValues {
			var sb strings.Builder
			for _, recorded := range history[i] {
				sb.WriteString("\n  ")
				sb.WriteString(recorded.String())
			}
			userErrorf("the parameter %q took on too many distinct values at constraint position %d across builds (limit %d):%s",
				name, i, t.maxUniqueValues, sb.String())
		}
	}
}

func exprsMatch(a, b pipe.Expr) bool {
	// Two undefined values count as equal; Expr.Equal treats undefined as
	// never provably equal.
	if !a.Defined() && !b.Defined() {
		return true
	}
	return a.Equal(b)
}
