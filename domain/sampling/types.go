package sampling

import (
	"fmt"
	"sort"
)

// Sample is a point in standardized (u-)space. Samples are never modified
// after they are drawn; copy before altering.
type Sample []float64

// Clone returns an independent copy of the sample
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	copy(out, s)
	return out
}

// RepresentativePoint is a mixture component center and its normalized weight
type RepresentativePoint struct {
	Point  Sample  `json:"point"`
	Weight float64 `json:"weight"`
}

// Criteria decides which side of the threshold counts as failure.
type Criteria struct {
	Threshold float64 `json:"threshold"`
	CDF       bool    `json:"cdf"`    // failure below the threshold (CDF) or above it (CCDF)
	Invert    bool    `json:"invert"` // refine the complementary event
}

// IsFailure classifies a response. A response exactly on the threshold is
// always safe.
func (c Criteria) IsFailure(response float64) bool {
	below := response < c.Threshold && ((!c.Invert && c.CDF) || (c.Invert && !c.CDF))
	above := response > c.Threshold && ((!c.Invert && !c.CDF) || (c.Invert && c.CDF))
	return below || above
}

// Accumulator carries the running importance-sampling sums between
// refinement iterations.
type Accumulator struct {
	Sum    float64 `json:"sum"`     // running sum of pdf ratios over failure samples
	VarSum float64 `json:"var_sum"` // running sum of squared deviations
	Count  int     `json:"count"`   // total samples drawn so far
}

// Status is the controller state
type Status int

const (
	StatusInitializing Status = iota
	StatusRefining
	StatusConverged
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "INITIALIZING"
	case StatusRefining:
		return "REFINING"
	case StatusConverged:
		return "CONVERGED"
	case StatusExhausted:
		return "EXHAUSTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Estimate is the outcome of a batch update or of a full run
type Estimate struct {
	Probability float64 `json:"probability"`
	COV         float64 `json:"cov"`
	Samples     int     `json:"samples"`
	Iterations  int     `json:"iterations"`
	Status      Status  `json:"status"`
	Clamped     bool    `json:"clamped"`  // probability saturated at 1
	Unstable    int     `json:"unstable"` // failure samples dropped for a degenerate mixture density
}

// Converged reports whether the run ended on the convergence test
func (e Estimate) Converged() bool {
	return e.Status == StatusConverged
}

// ConvergenceState holds the previous and current estimates of a run
type ConvergenceState struct {
	OldProbability float64
	OldCOV         float64
	Probability    float64
	COV            float64
	Iteration      int
	Samples        int
	Converged      bool
}

// IterationRecord is one row of the refinement history
type IterationRecord struct {
	Iteration      int     `json:"iteration"`
	Probability    float64 `json:"probability"`
	COV            float64 `json:"cov"`
	Samples        int     `json:"samples"`
	Failures       int     `json:"failures"`
	Representative int     `json:"representative"`
	Unstable       int     `json:"unstable"`
}

// Extremes is the observed response range for one response function
type Extremes struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ResponseIndices returns the response indices of a set of ranges in
// ascending order
func ResponseIndices(ranges map[int]Extremes) []int {
	idx := make([]int, 0, len(ranges))
	for k := range ranges {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}
