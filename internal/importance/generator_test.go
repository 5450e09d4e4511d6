package importance

import (
	"math"
	"math/rand"
	"testing"

	"goais/domain/core"
	"goais/domain/sampling"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unbounded(dim int) ([]float64, []float64) {
	lo, hi := make([]float64, dim), make([]float64, dim)
	for i := range lo {
		lo[i], hi[i] = math.Inf(-1), math.Inf(1)
	}
	return lo, hi
}

func pointsWithWeights(weights ...float64) []sampling.RepresentativePoint {
	out := make([]sampling.RepresentativePoint, len(weights))
	for i, w := range weights {
		out[i] = sampling.RepresentativePoint{Point: sampling.Sample{float64(i)}, Weight: w}
	}
	return out
}

func TestApportion(t *testing.T) {
	tests := []struct {
		name     string
		weights  []float64
		batch    int
		expected []int
	}{
		{"single point takes everything", []float64{0.2}, 7, []int{7}},
		{"even split", []float64{0.5, 0.5}, 10, []int{5, 5}},
		{"remainder absorbed by last", []float64{0.3, 0.3, 0.4}, 10, []int{3, 3, 4}},
		{"rounding overshoot clamped", []float64{0.5, 0.5, 0}, 3, []int{2, 1, 0}},
		{"rounding undershoot to last", []float64{0.33, 0.33, 0.34}, 1, []int{0, 0, 1}},
		{"tiny weights round to zero", []float64{0.001, 0.001, 0.998}, 100, []int{0, 0, 100}},
		{"empty batch", []float64{0.5, 0.5}, 0, []int{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := Apportion(pointsWithWeights(tt.weights...), tt.batch)
			assert.Equal(t, tt.expected, counts)
		})
	}
}

func TestApportion_AlwaysExact(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(12)
		weights := make([]float64, n)
		total := 0.0
		for i := range weights {
			weights[i] = rng.Float64()
			total += weights[i]
		}
		for i := range weights {
			weights[i] /= total
		}
		batch := 1 + rng.Intn(500)

		sum := 0
		for _, c := range Apportion(pointsWithWeights(weights...), batch) {
			assert.GreaterOrEqual(t, c, 0)
			sum += c
		}
		assert.Equal(t, batch, sum, "trial %d", trial)
	}
}

func TestGenerate_TwoModes(t *testing.T) {
	lo, hi := unbounded(2)
	gen, err := NewGenerator(lo, hi)
	require.NoError(t, err)

	points := []sampling.RepresentativePoint{
		{Point: sampling.Sample{-4, 0}, Weight: 0.5},
		{Point: sampling.Sample{4, 1}, Weight: 0.5},
	}
	batch, err := gen.Generate(rand.New(rand.NewSource(9)), points, 2001)
	require.NoError(t, err)
	require.Len(t, batch, 2001)

	// first point gets round(1000.5) = 1001, the last the remaining 1000
	first, second := batch[:1001], batch[1001:]
	for d, want := range []float64{-4, 0} {
		mean, err := stats.Mean(column(first, d))
		require.NoError(t, err)
		assert.InDelta(t, want, mean, 0.15)
	}
	for d, want := range []float64{4, 1} {
		mean, err := stats.Mean(column(second, d))
		require.NoError(t, err)
		assert.InDelta(t, want, mean, 0.15)
	}
	sd, err := stats.StandardDeviation(column(second, 0))
	require.NoError(t, err)
	assert.InDelta(t, 1, sd, 0.1)
}

func TestGenerate_RespectsBounds(t *testing.T) {
	gen, err := NewGenerator([]float64{-0.5, 2}, []float64{0.5, 2.2})
	require.NoError(t, err)

	points := []sampling.RepresentativePoint{{Point: sampling.Sample{3, -6}, Weight: 1}}
	batch, err := gen.Generate(rand.New(rand.NewSource(1)), points, 500)
	require.NoError(t, err)
	for _, s := range batch {
		assert.True(t, s[0] >= -0.5 && s[0] <= 0.5, "x0=%v", s[0])
		assert.True(t, s[1] >= 2 && s[1] <= 2.2, "x1=%v", s[1])
	}
}

func TestGenerate_DeepUpperTail(t *testing.T) {
	gen, err := NewGenerator([]float64{9}, []float64{math.Inf(1)})
	require.NoError(t, err)
	batch, err := gen.Generate(rand.New(rand.NewSource(5)), []sampling.RepresentativePoint{{Point: sampling.Sample{0}, Weight: 1}}, 100)
	require.NoError(t, err)
	for _, s := range batch {
		assert.False(t, math.IsInf(s[0], 0))
		assert.GreaterOrEqual(t, s[0], 9.0)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	lo, hi := unbounded(3)
	gen, err := NewGenerator(lo, hi)
	require.NoError(t, err)
	points := []sampling.RepresentativePoint{{Point: sampling.Sample{1, 2, 3}, Weight: 1}}

	a, err := gen.Generate(rand.New(rand.NewSource(77)), points, 50)
	require.NoError(t, err)
	b, err := gen.Generate(rand.New(rand.NewSource(77)), points, 50)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerator_Errors(t *testing.T) {
	_, err := NewGenerator([]float64{0}, []float64{0, 1})
	assert.True(t, core.IsInvariantViolation(err))
	_, err = NewGenerator([]float64{1}, []float64{0})
	assert.True(t, core.IsConfigError(err))

	lo, hi := unbounded(2)
	gen, err := NewGenerator(lo, hi)
	require.NoError(t, err)
	_, err = gen.Generate(rand.New(rand.NewSource(1)), nil, 10)
	assert.ErrorIs(t, err, core.ErrNoRepresentatives)
	_, err = gen.Generate(rand.New(rand.NewSource(1)), pointsWithWeights(1), 10)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func column(batch []sampling.Sample, d int) []float64 {
	out := make([]float64, len(batch))
	for i, s := range batch {
		out[i] = s[d]
	}
	return out
}
