package seed

import (
	"context"
	"fmt"
	"math/rand"

	"goais/domain/core"
	"goais/domain/sampling"
	"goais/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// LatinHypercube draws n u-space samples, one per equal-probability stratum
// in every dimension, with strata paired by independent permutations.
func LatinHypercube(rng *rand.Rand, n, dim int) []sampling.Sample {
	batch := make([]sampling.Sample, n)
	for i := range batch {
		batch[i] = make(sampling.Sample, dim)
	}
	for d := 0; d < dim; d++ {
		perm := rng.Perm(n)
		for i := 0; i < n; i++ {
			p := (float64(perm[i]) + openUniform(rng)) / float64(n)
			batch[i][d] = distuv.UnitNormal.Quantile(p)
		}
	}
	return batch
}

func openUniform(rng *rand.Rand) float64 {
	for {
		if p := rng.Float64(); p > 0 {
			return p
		}
	}
}

// Batch is an evaluated seed batch
type Batch struct {
	Samples   []sampling.Sample
	Responses [][]float64
}

// Evaluate runs the model over LHS samples and estimates the initial
// probability of the event chosen by criteria as the fraction of failures.
func Evaluate(ctx context.Context, model ports.ModelEvaluator, transform ports.ProbabilitySpaceTransform, rng *rand.Rand, n int, design []float64, responseIndex int, criteria sampling.Criteria) (Batch, float64, error) {
	samples := LatinHypercube(rng, n, transform.Dimension())
	batch := Batch{Samples: samples, Responses: make([][]float64, n)}

	failures := 0
	for i, u := range samples {
		x, err := transform.ToPhysical(u)
		if err != nil {
			return Batch{}, 0, err
		}
		input := append(append(make([]float64, 0, len(design)+len(x)), design...), x...)
		r, err := model.Evaluate(ctx, input)
		if err != nil {
			return Batch{}, 0, core.NewEvaluationError(i, err)
		}
		if responseIndex >= len(r) {
			return Batch{}, 0, fmt.Errorf("seed sample %d: response index %d out of range (%d responses)", i, responseIndex, len(r))
		}
		batch.Responses[i] = r
		if criteria.IsFailure(r[responseIndex]) {
			failures++
		}
	}

	p := 0.0
	if n > 0 {
		p = float64(failures) / float64(n)
	}
	return batch, p, nil
}
