package importance

import (
	"math"
	"sort"

	"goais/domain/core"
	"goais/domain/sampling"
	"goais/ports"

	"gonum.org/v1/gonum/floats"
)

const (
	// CutoffDistance is the u-space radius around a chosen representative
	// point inside which other candidates are considered redundant.
	CutoffDistance = 1.5

	// MinMixtureDensity is the smallest mixture density a failure sample may
	// have before its pdf ratio is treated as numerically unstable.
	MinMixtureDensity = 1e-300
)

// candidate is a sample index with its ranking key
type candidate struct {
	index int
	rank  float64
}

// Selector picks representative points from a labeled batch
type Selector struct {
	transform ports.ProbabilitySpaceTransform
}

// NewSelector creates a selector weighting points with the transform's
// standardized marginals
func NewSelector(transform ports.ProbabilitySpaceTransform) *Selector {
	return &Selector{transform: transform}
}

// Select returns at most maxPoints representative points with weights that
// sum to one. Failure samples are ranked most probable first (smallest
// distance to the origin); when the batch has no failures the safe samples
// closest to the threshold stand in for the failure boundary.
func (s *Selector) Select(samples []sampling.Sample, responses []float64, criteria sampling.Criteria, maxPoints int) ([]sampling.RepresentativePoint, error) {
	if len(samples) != len(responses) {
		return nil, core.NewDimensionError("responses", len(responses), len(samples))
	}
	if maxPoints < 1 {
		maxPoints = 1
	}

	var failures, safe []candidate
	for i, sample := range samples {
		if len(sample) != s.transform.Dimension() {
			return nil, core.NewDimensionError("sample", len(sample), s.transform.Dimension())
		}
		if criteria.IsFailure(responses[i]) {
			failures = append(failures, candidate{index: i, rank: floats.Norm(sample, 2)})
		} else {
			safe = append(safe, candidate{index: i, rank: math.Abs(responses[i] - criteria.Threshold)})
		}
	}

	ranked := failures
	if len(ranked) == 0 {
		ranked = safe
	}
	chosen := greedyCover(samples, ranked, maxPoints)
	if len(chosen) == 0 {
		return nil, core.ErrNoRepresentatives
	}

	points := make([]sampling.RepresentativePoint, len(chosen))
	total := 0.0
	for i, idx := range chosen {
		w := StandardDensity(s.transform, samples[idx])
		points[i] = sampling.RepresentativePoint{Point: samples[idx].Clone(), Weight: w}
		total += w
	}
	normalizeWeights(points, total)
	return points, nil
}

// greedyCover walks candidates in ascending rank order, keeping a candidate
// and exhausting every remaining one within CutoffDistance of it.
func greedyCover(samples []sampling.Sample, ranked []candidate, maxPoints int) []int {
	order := make([]candidate, len(ranked))
	copy(order, ranked)
	sort.SliceStable(order, func(i, j int) bool { return order[i].rank < order[j].rank })

	exhausted := make([]bool, len(order))
	var chosen []int
	for i, c := range order {
		if len(chosen) >= maxPoints {
			break
		}
		if exhausted[i] {
			continue
		}
		chosen = append(chosen, c.index)
		for j := i + 1; j < len(order); j++ {
			if !exhausted[j] && floats.Distance(samples[c.index], samples[order[j].index], 2) < CutoffDistance {
				exhausted[j] = true
			}
		}
	}
	return chosen
}

// normalizeWeights scales weights to sum to one. If every weight underflowed
// the points share the mass equally.
func normalizeWeights(points []sampling.RepresentativePoint, total float64) {
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		for i := range points {
			points[i].Weight = 1 / float64(len(points))
		}
		return
	}
	for i := range points {
		points[i].Weight /= total
	}
}
