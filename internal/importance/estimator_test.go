package importance

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"goais/adapters/transform"
	"goais/domain/core"
	"goais/domain/sampling"
	"goais/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func newTestEstimator(dim int, lo, hi []float64) (*Estimator, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := internal.NewWriterLogger(internal.LogLevelWarn, &buf)
	return NewEstimator(transform.StandardNormal(dim), lo, hi, logger), &buf
}

func TestCalculate_OriginPointGivesFailureFraction(t *testing.T) {
	lo, hi := unbounded(1)
	est, _ := newTestEstimator(1, lo, hi)
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{0}, Weight: 1}}
	criteria := sampling.Criteria{Threshold: 0, CDF: true}

	samples := []sampling.Sample{{-1}, {-0.5}, {0.2}, {1}, {0}}
	responses := []float64{-1, -0.5, 0.2, 1, 0}

	res, acc, err := est.Calculate(samples, responses, criteria, points, sampling.Accumulator{}, false)
	require.NoError(t, err)
	assert.Equal(t, 5, acc.Count)
	assert.Equal(t, 2, res.Failures)
	assert.InDelta(t, 0.4, res.Estimate.Probability, 1e-12)
	assert.Zero(t, res.Estimate.COV)

	// second batch accumulates on the running sums
	res, acc, err = est.Calculate(samples[:3], responses[:3], criteria, points, acc, false)
	require.NoError(t, err)
	assert.Equal(t, 8, acc.Count)
	assert.InDelta(t, 4.0/8.0, res.Estimate.Probability, 1e-12)
}

func TestCalculate_COV(t *testing.T) {
	lo, hi := unbounded(1)
	est, _ := newTestEstimator(1, lo, hi)
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{0}, Weight: 1}}
	criteria := sampling.Criteria{Threshold: 0, CDF: false}

	samples := []sampling.Sample{{1}, {2}, {-1}, {-2}}
	responses := []float64{1, 2, -1, -2}

	res, acc, err := est.Calculate(samples, responses, criteria, points, sampling.Accumulator{}, true)
	require.NoError(t, err)

	p := 0.5
	varSum := 2 * (1 - p) * (1 - p)
	variance := varSum / (4 * 3)
	assert.InDelta(t, p, res.Estimate.Probability, 1e-12)
	assert.InDelta(t, varSum, acc.VarSum, 1e-12)
	assert.InDelta(t, math.Sqrt(variance)/p, res.Estimate.COV, 1e-12)
}

func TestCalculate_ZeroProbabilityHasZeroCOV(t *testing.T) {
	lo, hi := unbounded(1)
	est, _ := newTestEstimator(1, lo, hi)
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{0}, Weight: 1}}

	res, _, err := est.Calculate([]sampling.Sample{{1}}, []float64{1}, sampling.Criteria{CDF: true}, points, sampling.Accumulator{}, true)
	require.NoError(t, err)
	assert.Zero(t, res.Estimate.Probability)
	assert.Zero(t, res.Estimate.COV)
}

func TestCalculate_ClampsSaturatedProbability(t *testing.T) {
	lo, hi := unbounded(1)
	est, logs := newTestEstimator(1, lo, hi)
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{10}, Weight: 1}}

	res, _, err := est.Calculate([]sampling.Sample{{0}}, []float64{-1}, sampling.Criteria{CDF: true}, points, sampling.Accumulator{}, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Estimate.Probability)
	assert.True(t, res.Estimate.Clamped)
	assert.Contains(t, logs.String(), "clamping")
}

func TestCalculate_DegenerateMixtureIsExcluded(t *testing.T) {
	est, logs := newTestEstimator(1, []float64{5}, []float64{math.Inf(1)})
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{6}, Weight: 1}}
	samples := []sampling.Sample{{0}, {5.5}}
	responses := []float64{-1, -1}

	res, acc, err := est.Calculate(samples, responses, sampling.Criteria{CDF: true}, points, sampling.Accumulator{}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Estimate.Unstable)
	assert.Equal(t, 2, res.Failures)
	assert.Equal(t, 2, acc.Count)
	assert.False(t, math.IsNaN(res.Estimate.Probability))
	assert.Contains(t, logs.String(), "degenerate mixture density")
}

func TestCalculate_Errors(t *testing.T) {
	lo, hi := unbounded(2)
	est, _ := newTestEstimator(2, lo, hi)
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{0, 0}, Weight: 1}}

	_, _, err := est.Calculate([]sampling.Sample{{0, 0}}, nil, sampling.Criteria{}, points, sampling.Accumulator{}, false)
	assert.True(t, core.IsInvariantViolation(err))

	_, _, err = est.Calculate([]sampling.Sample{{0}}, []float64{-1}, sampling.Criteria{CDF: true}, points, sampling.Accumulator{}, false)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestCalculate_ApproachesNormalTail(t *testing.T) {
	lo, hi := unbounded(1)
	gen, err := NewGenerator(lo, hi)
	require.NoError(t, err)
	est, _ := newTestEstimator(1, lo, hi)
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{0}, Weight: 1}}

	batch, err := gen.Generate(rand.New(rand.NewSource(2024)), points, 20000)
	require.NoError(t, err)
	responses := make([]float64, len(batch))
	for i, s := range batch {
		responses[i] = s[0]
	}

	res, _, err := est.Calculate(batch, responses, sampling.Criteria{Threshold: -1.5, CDF: true}, points, sampling.Accumulator{}, false)
	require.NoError(t, err)
	assert.InDelta(t, distuv.UnitNormal.CDF(-1.5), res.Estimate.Probability, 0.006)
}

func TestCalculate_ShiftedProposalIsUnbiased(t *testing.T) {
	lo, hi := unbounded(1)
	gen, err := NewGenerator(lo, hi)
	require.NoError(t, err)
	est, _ := newTestEstimator(1, lo, hi)
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{3}, Weight: 1}}

	batch, err := gen.Generate(rand.New(rand.NewSource(8)), points, 5000)
	require.NoError(t, err)
	responses := make([]float64, len(batch))
	for i, s := range batch {
		responses[i] = s[0]
	}

	res, _, err := est.Calculate(batch, responses, sampling.Criteria{Threshold: 3, CDF: false}, points, sampling.Accumulator{}, false)
	require.NoError(t, err)
	want := distuv.UnitNormal.Survival(3)
	assert.InDelta(t, want, res.Estimate.Probability, 0.1*want)
}
