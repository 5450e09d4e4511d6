package model

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"goais/domain/core"
)

// LimitState is an analytic model. Its response vector is
// [g(x), Σx]; the first entry is the limit-state value, failure usually
// being g < 0.
type LimitState struct {
	name   string
	g      func(x []float64) float64
	arity  int // minimum input length
	design int // leading inputs g reads as design variables
	calls  atomic.Int64
}

// Evaluate computes the response vector for x
func (l *LimitState) Evaluate(ctx context.Context, x []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(x) < l.arity {
		return nil, fmt.Errorf("%w: limit state %s needs at least %d inputs, got %d",
			core.ErrDimensionMismatch, l.name, l.arity, len(x))
	}
	l.calls.Add(1)
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return []float64{l.g(x), sum}, nil
}

// Name returns the limit-state name
func (l *LimitState) Name() string { return l.name }

// Calls returns how many evaluations were made
func (l *LimitState) Calls() int64 { return l.calls.Load() }

// Arity is the minimum number of inputs g reads
func (l *LimitState) Arity() int { return l.arity }

// CheckInputs validates a model input layout of design variables followed
// by uncertain variables. Limit states written over the uncertain variables
// alone reject design variables, which would otherwise shift their inputs.
func (l *LimitState) CheckInputs(design, uncertain int) error {
	if design > 0 && l.design == 0 {
		return core.NewConfigError("design_vars", fmt.Sprintf("are not read by limit state %s", l.name))
	}
	if design+uncertain < l.arity {
		return core.NewConfigError("variables", fmt.Sprintf("limit state %s needs %d inputs, got %d design and %d uncertain",
			l.name, l.arity, design, uncertain))
	}
	return nil
}

// Linear is g(x) = beta - Σx/√n. With standard normal inputs the failure
// probability P(g < 0) is Φ(-beta).
func Linear(beta float64) *LimitState {
	return &LimitState{
		name:  "linear",
		arity: 1,
		g: func(x []float64) float64 {
			sum := 0.0
			for _, v := range x {
				sum += v
			}
			return beta - sum/math.Sqrt(float64(len(x)))
		},
	}
}

// Series is a two-mode system failing when |x₁| > beta, so the failure
// region has two disjoint lobes and P(g < 0) = 2Φ(-beta) for standard
// normal inputs.
func Series(beta float64) *LimitState {
	return &LimitState{
		name:  "series",
		arity: 1,
		g: func(x []float64) float64 {
			return math.Min(beta-x[0], beta+x[0])
		},
	}
}

// Parabolic is g(x) = beta - x₂ - curvature·x₁²/2, a curved failure surface
func Parabolic(beta, curvature float64) *LimitState {
	return &LimitState{
		name:  "parabolic",
		arity: 2,
		g: func(x []float64) float64 {
			return beta - x[1] - curvature*x[0]*x[0]/2
		},
	}
}

// Cantilever is the classic tip-displacement limit state
// g = D0 - 4L³/(E w t)·√((Y/t²)² + (X/w²)²) with inputs [X, Y, E] and the
// beam width and thickness supplied as design variables ahead of them:
// x = [w, t, X, Y, E].
func Cantilever(length, allowable float64) *LimitState {
	return &LimitState{
		name:   "cantilever",
		arity:  5,
		design: 2,
		g: func(x []float64) float64 {
			w, t, loadX, loadY, e := x[0], x[1], x[2], x[3], x[4]
			disp := 4 * math.Pow(length, 3) / (e * w * t) *
				math.Sqrt(math.Pow(loadY/(t*t), 2)+math.Pow(loadX/(w*w), 2))
			return allowable - disp
		},
	}
}

// NewLimitState builds a limit state by name for configuration-driven runs
func NewLimitState(name string, params map[string]float64) (*LimitState, error) {
	param := func(key string, def float64) float64 {
		if v, ok := params[key]; ok {
			return v
		}
		return def
	}
	switch strings.ToLower(name) {
	case "linear":
		return Linear(param("beta", 3)), nil
	case "series":
		return Series(param("beta", 3)), nil
	case "parabolic":
		return Parabolic(param("beta", 3), param("curvature", 0.2)), nil
	case "cantilever":
		return Cantilever(param("length", 100), param("allowable", 2.2535)), nil
	default:
		return nil, fmt.Errorf("unknown limit state %q", name)
	}
}
