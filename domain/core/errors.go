package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Contract errors: a caller or an internal step broke an invariant.
	// These are never recovered inside the engine.
	ErrInvariantViolation = errors.New("invariant violation")
	ErrDimensionMismatch  = fmt.Errorf("%w: dimension mismatch", ErrInvariantViolation)
	ErrNoRepresentatives  = fmt.Errorf("%w: no representative points selected", ErrInvariantViolation)

	// Configuration errors
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNotInitialized = errors.New("engine not initialized")

	// Model errors
	ErrEvaluationFailed = errors.New("model evaluation failed")
	ErrMissingResponse  = fmt.Errorf("%w: missing response", ErrEvaluationFailed)
)

// Error constructors with context
func NewDimensionError(what string, got, want int) error {
	return fmt.Errorf("%w: %s has length %d, expected %d", ErrDimensionMismatch, what, got, want)
}

func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason)
}

func NewEvaluationError(index int, err error) error {
	return fmt.Errorf("%w for sample %d: %v", ErrEvaluationFailed, index, err)
}

// Error checking helpers
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrNotInitialized)
}

func IsEvaluationError(err error) bool {
	return errors.Is(err, ErrEvaluationFailed)
}
