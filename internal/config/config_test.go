package config

import (
	"os"
	"path/filepath"
	"testing"

	"goais/domain/core"
	"goais/internal/errors"
	"goais/internal/importance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const problemYAML = `
variables:
  - name: load
    distribution: normal
    params: {mean: 0, std: 1}
    lower: -4
    upper: 4
  - name: strength
    distribution: lognormal
    params: {mu: 0, sigma: 0.25}
limit_state:
  name: series
  params: {beta: 2.5}
engine:
  batch_size: 500
  multimodal: true
  failure_threshold: 0
  initial_probability: 0.02
`

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("AIS_BATCH_SIZE", "250")
	t.Setenv("AIS_MULTIMODAL", "true")
	t.Setenv("AIS_WORKERS", "4")
	t.Setenv("AIS_TOLERANCE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Engine.BatchSize)
	assert.True(t, cfg.Engine.Multimodal)
	assert.Equal(t, 4, cfg.Runtime.Workers)
	assert.Equal(t, importance.DefaultConfig().ConvergenceTolerance, cfg.Engine.ConvergenceTolerance)
	assert.Equal(t, importance.DefaultMaxIterations, cfg.Engine.MaxIterations)
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("AIS_BATCH_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestParseProblem(t *testing.T) {
	p, engine, err := ParseProblem([]byte(problemYAML), importance.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 500, engine.BatchSize)
	assert.True(t, engine.Multimodal)
	assert.True(t, engine.CDF, "unset fields keep the base value")
	assert.InDelta(t, 0.02, engine.InitialProbability, 1e-12)
	assert.Equal(t, "series", p.LimitState.Name)

	tr, err := p.Transform()
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Dimension())
	lo, hi := tr.ModelBounds()
	assert.InDelta(t, -4, lo[0], 1e-6)
	assert.InDelta(t, 4, hi[0], 1e-6)
}

func TestParseProblem_Errors(t *testing.T) {
	base := importance.DefaultConfig()

	_, _, err := ParseProblem([]byte("variables: ["), base)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, _, err = ParseProblem([]byte("limit_state: {name: linear}"), base)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, _, err = ParseProblem([]byte("variables: [{name: x, distribution: normal, params: {mean: 0, std: 1}}]"), base)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	bad := "variables: [{name: x, distribution: normal, params: {mean: 0, std: 1}}]\nlimit_state: {name: linear}\nengine: {batch_size: -3}\n"
	_, _, err = ParseProblem([]byte(bad), base)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	p, _, err := ParseProblem([]byte("variables: [{name: x, distribution: pareto}]\nlimit_state: {name: linear}\n"), base)
	require.NoError(t, err)
	_, err = p.Transform()
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestLoadProblem_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(problemYAML), 0o600))

	_, engine, err := LoadProblem(path, importance.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 500, engine.BatchSize)

	_, _, err = LoadProblem(filepath.Join(t.TempDir(), "missing.yaml"), importance.DefaultConfig())
	assert.Error(t, err)
}
