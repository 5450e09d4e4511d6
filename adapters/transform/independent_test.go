package transform

import (
	"math"
	"testing"

	"goais/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndependent_RoundTrip(t *testing.T) {
	normal, err := NewMarginal("normal", map[string]float64{"mean": 10, "std": 2})
	require.NoError(t, err)
	uniform, err := NewMarginal("uniform", map[string]float64{"min": 0, "max": 4})
	require.NoError(t, err)

	tr, err := NewIndependent(NewVariable("load", normal), NewVariable("gap", uniform))
	require.NoError(t, err)

	x, err := tr.ToPhysical([]float64{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 12, x[0], 1e-9)
	assert.InDelta(t, 2, x[1], 1e-9)

	u, err := tr.ToStandard(x)
	require.NoError(t, err)
	assert.InDelta(t, 1, u[0], 1e-9)
	assert.InDelta(t, 0, u[1], 1e-9)
}

func TestIndependent_Bounds(t *testing.T) {
	normal, err := NewMarginal("normal", map[string]float64{"mean": 0, "std": 1})
	require.NoError(t, err)
	v := NewVariable("x", normal)
	v.Lower, v.Upper = -1, 2

	tr, err := NewIndependent(v)
	require.NoError(t, err)

	lo, hi := tr.Bounds()
	assert.True(t, math.IsInf(lo[0], -1))
	assert.True(t, math.IsInf(hi[0], 1))

	mlo, mhi := tr.ModelBounds()
	assert.InDelta(t, -1, mlo[0], 1e-9)
	assert.InDelta(t, 2, mhi[0], 1e-9)
}

func TestIndependent_Errors(t *testing.T) {
	_, err := NewIndependent()
	assert.True(t, core.IsConfigError(err))

	_, err = StandardNormal(2).ToPhysical([]float64{0})
	assert.True(t, core.IsInvariantViolation(err))

	_, err = NewMarginal("cauchy", nil)
	assert.Error(t, err)

	_, err = NewMarginal("normal", map[string]float64{"mean": 0, "std": -1})
	assert.Error(t, err)
}

func TestStandardNormal_MarginalPDF(t *testing.T) {
	tr := StandardNormal(3)
	assert.Equal(t, 3, tr.Dimension())
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), tr.MarginalPDF(0, 2), 1e-12)
	assert.Equal(t, []string{"u1", "u2", "u3"}, tr.Names())
}
