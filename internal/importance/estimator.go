package importance

import (
	"math"

	"goais/domain/core"
	"goais/domain/sampling"
	"goais/internal"
	"goais/ports"
)

// Estimator turns evaluated batches into a running importance-sampling
// estimate of the failure probability.
type Estimator struct {
	transform ports.ProbabilitySpaceTransform
	lower     []float64
	upper     []float64
	logger    *internal.Logger
}

// NewEstimator creates an estimator for mixtures truncated to [lower, upper]
func NewEstimator(transform ports.ProbabilitySpaceTransform, lower, upper []float64, logger *internal.Logger) *Estimator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Estimator{transform: transform, lower: lower, upper: upper, logger: logger}
}

// BatchResult is the per-batch detail behind an estimate update
type BatchResult struct {
	Estimate sampling.Estimate
	Failures int
}

// Calculate folds one evaluated batch into acc and returns the updated
// probability (and coefficient of variation when computeCOV is set).
func (e *Estimator) Calculate(
	samples []sampling.Sample,
	responses []float64,
	criteria sampling.Criteria,
	points []sampling.RepresentativePoint,
	acc sampling.Accumulator,
	computeCOV bool,
) (BatchResult, sampling.Accumulator, error) {
	if len(samples) != len(responses) {
		return BatchResult{}, acc, core.NewDimensionError("responses", len(responses), len(samples))
	}

	var ratios []float64
	unstable := 0
	for i, u := range samples {
		if !criteria.IsFailure(responses[i]) {
			continue
		}
		target := StandardDensity(e.transform, u)
		mixture, err := MixtureDensity(points, e.lower, e.upper, u)
		if err != nil {
			return BatchResult{}, acc, err
		}
		if !isUsableDensity(mixture) {
			unstable++
			continue
		}
		ratio := target / mixture
		if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
			unstable++
			continue
		}
		ratios = append(ratios, ratio)
		acc.Sum += ratio
	}
	acc.Count += len(samples)

	if unstable > 0 {
		e.logger.Warn("excluded %d failure samples with a degenerate mixture density", unstable)
	}

	result := BatchResult{Failures: len(ratios) + unstable}
	est := &result.Estimate
	est.Samples = acc.Count
	est.Unstable = unstable
	if acc.Count > 0 {
		est.Probability = acc.Sum / float64(acc.Count)
	}
	if est.Probability > 1 {
		e.logger.Warn("probability estimate %.6g exceeds 1, clamping", est.Probability)
		est.Probability = 1
		est.Clamped = true
	}

	if computeCOV {
		for _, r := range ratios {
			diff := r - est.Probability
			acc.VarSum += diff * diff
		}
		if acc.Count > 1 && est.Probability > 0 {
			variance := acc.VarSum / (float64(acc.Count) * float64(acc.Count-1))
			est.COV = math.Sqrt(variance) / est.Probability
		}
	}
	return result, acc, nil
}
