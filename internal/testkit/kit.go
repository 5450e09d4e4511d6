package testkit

import (
	"context"
	"math/rand"

	"goais/adapters/model"
	"goais/adapters/seed"
	"goais/adapters/transform"
	"goais/domain/sampling"
	"goais/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	rng *RNGAdapter
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{rng: &RNGAdapter{}}
}

// RNGAdapter returns an RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// Rand returns a math/rand generator seeded with seed
func (t *TestKit) Rand(seed int64) *rand.Rand {
	rng, _ := t.rng.SeededStream(context.Background(), "testkit", seed)
	return rng
}

// SeedBatch evaluates an LHS batch of n samples of the limit state over
// dim standard normal variables.
func (t *TestKit) SeedBatch(ls *model.LimitState, dim, n int, seedValue int64, criteria sampling.Criteria) (seed.Batch, float64, error) {
	tr := transform.StandardNormal(dim)
	return seed.Evaluate(context.Background(), ls, tr, t.Rand(seedValue), n, nil, 0, criteria)
}

// ResponseColumn wraps scalar responses as single-entry response vectors
func ResponseColumn(values []float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, v := range values {
		out[i] = []float64{v}
	}
	return out
}

// RNGAdapter is a deterministic ports.RNGPort
type RNGAdapter struct{}

// SeededStream creates a deterministic random number generator for a named operation
func (r *RNGAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(seed)), nil
}

// Stream creates a deterministic RNG stream for a specific run/stage pair
func (r *RNGAdapter) Stream(ctx context.Context, runID, stageName string, baseSeed int64) (*rand.Rand, error) {
	// Create deterministic seed by hashing runID + stageName + baseSeed
	seed := baseSeed
	if runID != "" {
		seed = int64(hashString(runID)) + seed
	}
	if stageName != "" {
		seed = int64(hashString(stageName)) + seed
	}
	return rand.New(rand.NewSource(seed)), nil
}

func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
