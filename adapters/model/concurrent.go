package model

import (
	"context"
	"fmt"
	"sync"

	"goais/ports"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// job is a submitted evaluation waiting for Synchronize
type job struct {
	tag int
	x   []float64
}

// ConcurrentEvaluator turns any synchronous model into a batch model. Points
// queued with Submit are evaluated in parallel by Synchronize, at most
// `workers` at a time, and returned keyed by tag.
type ConcurrentEvaluator struct {
	inner   ports.ModelEvaluator
	sem     *semaphore.Weighted
	workers int64

	mu      sync.Mutex
	pending []job
}

// NewConcurrentEvaluator wraps inner with a worker limit (minimum 1)
func NewConcurrentEvaluator(inner ports.ModelEvaluator, workers int) *ConcurrentEvaluator {
	if workers < 1 {
		workers = 1
	}
	return &ConcurrentEvaluator{
		inner:   inner,
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: int64(workers),
	}
}

// Evaluate runs a single point synchronously
func (c *ConcurrentEvaluator) Evaluate(ctx context.Context, x []float64) ([]float64, error) {
	return c.inner.Evaluate(ctx, x)
}

// AsynchEnabled is always true for this adapter
func (c *ConcurrentEvaluator) AsynchEnabled() bool { return true }

// Submit queues x under tag. Tags must be unique until the next Synchronize.
func (c *ConcurrentEvaluator) Submit(ctx context.Context, x []float64, tag int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, j := range c.pending {
		if j.tag == tag {
			return fmt.Errorf("tag %d already submitted", tag)
		}
	}
	input := make([]float64, len(x))
	copy(input, x)
	c.pending = append(c.pending, job{tag: tag, x: input})
	return nil
}

// Synchronize evaluates every queued point and clears the queue. The first
// evaluation error cancels the rest of the batch.
func (c *ConcurrentEvaluator) Synchronize(ctx context.Context) (map[int][]float64, error) {
	c.mu.Lock()
	jobs := c.pending
	c.pending = nil
	c.mu.Unlock()

	results := make(map[int][]float64, len(jobs))
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		if err := c.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer c.sem.Release(1)
			r, err := c.inner.Evaluate(gctx, j.x)
			if err != nil {
				return fmt.Errorf("tag %d: %w", j.tag, err)
			}
			resultsMu.Lock()
			results[j.tag] = r
			resultsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Workers returns the concurrency limit
func (c *ConcurrentEvaluator) Workers() int { return int(c.workers) }
