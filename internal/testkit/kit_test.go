package testkit

import (
	"context"
	"testing"

	"goais/adapters/model"
	"goais/domain/sampling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNGAdapter_Deterministic(t *testing.T) {
	ctx := context.Background()
	kit := NewTestKit()

	a, err := kit.RNGAdapter().Stream(ctx, "run-1", "refine", 42)
	require.NoError(t, err)
	b, err := kit.RNGAdapter().Stream(ctx, "run-1", "refine", 42)
	require.NoError(t, err)
	c, err := kit.RNGAdapter().Stream(ctx, "run-2", "refine", 42)
	require.NoError(t, err)

	va, vb, vc := a.Float64(), b.Float64(), c.Float64()
	assert.Equal(t, va, vb)
	assert.NotEqual(t, va, vc)
}

func TestSeedBatch(t *testing.T) {
	kit := NewTestKit()
	batch, p, err := kit.SeedBatch(model.Linear(1), 2, 200, 3, sampling.Criteria{Threshold: 0, CDF: true})
	require.NoError(t, err)
	assert.Len(t, batch.Samples, 200)
	assert.InDelta(t, 0.16, p, 0.07)

	col := ResponseColumn([]float64{1, 2})
	assert.Equal(t, [][]float64{{1}, {2}}, col)
}
