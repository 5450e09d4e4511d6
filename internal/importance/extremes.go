package importance

import (
	"goais/domain/sampling"

	"github.com/montanaflynn/stats"
)

// ExtremeTracker records the smallest and largest value seen for every
// response function the model returns.
type ExtremeTracker struct {
	ranges map[int]sampling.Extremes
}

// NewExtremeTracker creates an empty tracker
func NewExtremeTracker() *ExtremeTracker {
	return &ExtremeTracker{ranges: make(map[int]sampling.Extremes)}
}

// Observe folds a batch of response vectors into the tracked ranges
func (t *ExtremeTracker) Observe(responses [][]float64) {
	columns := make(map[int][]float64)
	for _, r := range responses {
		for idx, v := range r {
			columns[idx] = append(columns[idx], v)
		}
	}

	for idx, col := range columns {
		lo, err := stats.Min(col)
		if err != nil {
			continue
		}
		hi, _ := stats.Max(col)

		current, ok := t.ranges[idx]
		if !ok {
			t.ranges[idx] = sampling.Extremes{Min: lo, Max: hi}
			continue
		}
		if lo < current.Min {
			current.Min = lo
		}
		if hi > current.Max {
			current.Max = hi
		}
		t.ranges[idx] = current
	}
}

// Extremes returns a copy of the tracked ranges keyed by response index
func (t *ExtremeTracker) Extremes() map[int]sampling.Extremes {
	out := make(map[int]sampling.Extremes, len(t.ranges))
	for k, v := range t.ranges {
		out[k] = v
	}
	return out
}
