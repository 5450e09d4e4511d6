package ports

import "context"

// ModelEvaluator maps a full model input vector to its response functions.
// Implementations must tolerate repeated calls across refinement iterations.
type ModelEvaluator interface {
	Evaluate(ctx context.Context, x []float64) ([]float64, error)
}

// AsyncModelEvaluator is a model that can take a whole batch at once.
// Synchronize returns every response submitted since the previous call,
// keyed by the tag it was submitted with, in any order.
type AsyncModelEvaluator interface {
	ModelEvaluator

	// AsynchEnabled reports whether batches should go through Submit/Synchronize
	AsynchEnabled() bool
	Submit(ctx context.Context, x []float64, tag int) error
	Synchronize(ctx context.Context) (map[int][]float64, error)
}
