package importance

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"goais/domain/core"
	"goais/domain/sampling"
	"goais/internal"
	"goais/ports"

	"github.com/google/uuid"
)

// DefaultMaxIterations bounds the refinement loop when none is configured
const DefaultMaxIterations = 100

// Config holds the options fixed at construction
type Config struct {
	ResponseIndex        int       `json:"response_index" yaml:"response_index"`
	InitialProbability   float64   `json:"initial_probability" yaml:"initial_probability"`
	FailureThreshold     float64   `json:"failure_threshold" yaml:"failure_threshold"`
	CDF                  bool      `json:"cdf" yaml:"cdf"`
	UseModelBounds       bool      `json:"use_model_bounds" yaml:"use_model_bounds"`
	BatchSize            int       `json:"batch_size" yaml:"batch_size"`
	MaxIterations        int       `json:"max_iterations" yaml:"max_iterations"`
	ConvergenceTolerance float64   `json:"convergence_tolerance" yaml:"convergence_tolerance"`
	Multimodal           bool      `json:"multimodal" yaml:"multimodal"` // multimodal refinement, also enables the COV estimate
	TrackExtremeValues   bool      `json:"track_extreme_values" yaml:"track_extreme_values"`
	DesignVars           []float64 `json:"design_vars,omitempty" yaml:"design_vars,omitempty"`
	Seed                 int64     `json:"seed" yaml:"seed"`
}

// DefaultConfig returns the defaults used by the CLI
func DefaultConfig() Config {
	return Config{
		BatchSize:            1000,
		MaxIterations:        DefaultMaxIterations,
		ConvergenceTolerance: 1e-2,
		CDF:                  true,
		Seed:                 42,
	}
}

// Validate checks the static options
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return core.NewConfigError("batch_size", "must be at least 1")
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxIterations < 0 {
		return core.NewConfigError("max_iterations", "must be positive")
	}
	if c.ConvergenceTolerance < 0 {
		return core.NewConfigError("convergence_tolerance", "must not be negative")
	}
	if c.ResponseIndex < 0 {
		return core.NewConfigError("response_index", "must not be negative")
	}
	return nil
}

// ComputeCOV reports whether the coefficient of variation is estimated
func (c Config) ComputeCOV() bool {
	return c.Multimodal
}

// MaxSamples is the total sample budget of a run
func (c Config) MaxSamples() int {
	return c.BatchSize * c.MaxIterations
}

// Engine is the adaptive importance sampling controller. An Engine is not
// safe for concurrent use; each Initialize starts a fresh run.
type Engine struct {
	cfg       Config
	model     ports.ModelEvaluator
	transform ports.ProbabilitySpaceTransform
	rng       *rand.Rand
	logger    *internal.Logger

	selector  *Selector
	generator *Generator
	estimator *Estimator

	runID    string
	status   sampling.Status
	criteria sampling.Criteria
	points   []sampling.RepresentativePoint
	acc      sampling.Accumulator
	state    sampling.ConvergenceState
	history  []sampling.IterationRecord
	extremes *ExtremeTracker
}

// New builds an engine. A nil rng is replaced by one seeded from cfg.Seed
// and a nil logger by the package default.
func New(cfg Config, model ports.ModelEvaluator, transform ports.ProbabilitySpaceTransform, rng *rand.Rand, logger *internal.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, core.NewConfigError("model", "is required")
	}
	if transform == nil {
		return nil, core.NewConfigError("transform", "is required")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger = logger.With("ais")

	lower, upper := transform.Bounds()
	if cfg.UseModelBounds {
		lower, upper = transform.ModelBounds()
	}
	if len(lower) != transform.Dimension() {
		return nil, core.NewDimensionError("lower bounds", len(lower), transform.Dimension())
	}
	generator, err := NewGenerator(lower, upper)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		model:     model,
		transform: transform,
		rng:       rng,
		logger:    logger,
		selector:  NewSelector(transform),
		generator: generator,
		estimator: NewEstimator(transform, lower, upper, logger),
		status:    sampling.StatusInitializing,
	}, nil
}

// Initialize consumes the seed batch and computes the first set of
// representative points. seedResponses holds the full response vector of
// every seed sample.
func (e *Engine) Initialize(ctx context.Context, seedSamples []sampling.Sample, seedResponses [][]float64, responseIndex int, initialProbability, threshold float64) error {
	if len(seedSamples) == 0 {
		return core.NewConfigError("seed batch", "is empty")
	}
	if len(seedSamples) != len(seedResponses) {
		return core.NewDimensionError("seed responses", len(seedResponses), len(seedSamples))
	}
	if math.IsNaN(initialProbability) || initialProbability < 0 || initialProbability > 1 {
		return core.NewConfigError("initial probability", fmt.Sprintf("%v is outside [0, 1]", initialProbability))
	}

	values, err := pickResponse(seedResponses, responseIndex)
	if err != nil {
		return err
	}

	e.cfg.ResponseIndex = responseIndex
	e.cfg.InitialProbability = initialProbability
	e.cfg.FailureThreshold = threshold

	invert := initialProbability > 0.5
	e.criteria = sampling.Criteria{Threshold: threshold, CDF: e.cfg.CDF, Invert: invert}

	e.runID = uuid.NewString()
	e.acc = sampling.Accumulator{}
	e.history = nil
	e.extremes = nil
	if e.cfg.TrackExtremeValues {
		e.extremes = NewExtremeTracker()
		e.extremes.Observe(seedResponses)
	}

	old := initialProbability
	if invert {
		old = 1 - initialProbability
	}
	e.state = sampling.ConvergenceState{OldProbability: old}

	points, err := e.selector.Select(seedSamples, values, e.criteria, e.maxPoints())
	if err != nil {
		return err
	}
	e.points = points
	e.status = sampling.StatusRefining

	e.logger.Info("run %s initialized: %d seed samples, %d representative points, invert=%t",
		e.runID, len(seedSamples), len(points), invert)
	return nil
}

// Run refines the estimate until it converges or the sample budget runs out.
// Running out of budget is reported through the returned status, not as an
// error. The context is only consulted between iterations: on cancellation
// Run returns the context error together with the estimate of the last
// completed iteration, whose status stays REFINING.
func (e *Engine) Run(ctx context.Context) (sampling.Estimate, error) {
	if e.status != sampling.StatusRefining {
		return sampling.Estimate{}, core.ErrNotInitialized
	}

	var current BatchResult
	converged := false
	for e.acc.Count < e.cfg.MaxSamples() {
		if err := ctx.Err(); err != nil {
			return e.finish(current.Estimate), fmt.Errorf("refinement interrupted after %d iterations: %w", e.state.Iteration, err)
		}

		batch, err := e.generator.Generate(e.rng, e.points, e.cfg.BatchSize)
		if err != nil {
			return sampling.Estimate{}, err
		}
		full, err := e.evaluateBatch(ctx, batch)
		if err != nil {
			return sampling.Estimate{}, err
		}
		responses, err := pickResponse(full, e.cfg.ResponseIndex)
		if err != nil {
			return sampling.Estimate{}, err
		}
		if e.extremes != nil {
			e.extremes.Observe(full)
		}

		var acc sampling.Accumulator
		current, acc, err = e.estimator.Calculate(batch, responses, e.criteria, e.points, e.acc, e.cfg.ComputeCOV())
		if err != nil {
			return sampling.Estimate{}, err
		}
		e.acc = acc
		e.state.Iteration++
		e.state.Samples = acc.Count
		e.state.Probability = current.Estimate.Probability
		e.state.COV = current.Estimate.COV
		e.history = append(e.history, sampling.IterationRecord{
			Iteration:      e.state.Iteration,
			Probability:    current.Estimate.Probability,
			COV:            current.Estimate.COV,
			Samples:        acc.Count,
			Failures:       current.Failures,
			Representative: len(e.points),
			Unstable:       current.Estimate.Unstable,
		})
		e.logger.Debug("iteration %d: p=%.6g cov=%.4g samples=%d failures=%d points=%d",
			e.state.Iteration, current.Estimate.Probability, current.Estimate.COV, acc.Count, current.Failures, len(e.points))

		if e.converged() {
			converged = true
			break
		}

		points, err := e.selector.Select(batch, responses, e.criteria, e.maxPoints())
		if err != nil {
			return sampling.Estimate{}, err
		}
		e.points = points
		e.state.OldProbability = e.state.Probability
		e.state.OldCOV = e.state.COV
	}

	e.state.Converged = converged
	if converged {
		e.status = sampling.StatusConverged
	} else {
		e.status = sampling.StatusExhausted
		e.logger.Warn("sample budget of %d exhausted without convergence, returning p=%.6g",
			e.cfg.MaxSamples(), current.Estimate.Probability)
	}
	return e.finish(current.Estimate), nil
}

// converged applies the single-pass rule or the dual probability/COV test
func (e *Engine) converged() bool {
	if !e.cfg.Multimodal {
		return true
	}
	tol := e.cfg.ConvergenceTolerance
	s := e.state

	covOK := true
	if e.cfg.ComputeCOV() {
		covOK = s.COV != 0 && s.OldCOV != 0 && math.Abs(s.COV/s.OldCOV-1) < tol
	}
	probOK := s.Probability > 0 && s.Probability < 1 &&
		s.OldProbability > 0 && s.OldProbability < 1 &&
		math.Abs(s.Probability/s.OldProbability-1) < tol
	return covOK && probOK
}

// finish stamps run-level fields and undoes the probability inversion
func (e *Engine) finish(est sampling.Estimate) sampling.Estimate {
	est.Iterations = e.state.Iteration
	est.Samples = e.acc.Count
	est.Status = e.status
	if e.criteria.Invert {
		est.Probability = 1 - est.Probability
	}
	return est
}

func (e *Engine) maxPoints() int {
	if e.cfg.Multimodal {
		return e.cfg.BatchSize
	}
	return 1
}

// evaluateBatch maps the batch to model inputs and collects the responses in
// batch order, going through Submit/Synchronize when the model supports it.
func (e *Engine) evaluateBatch(ctx context.Context, batch []sampling.Sample) ([][]float64, error) {
	inputs := make([][]float64, len(batch))
	for i, u := range batch {
		x, err := e.transform.ToPhysical(u)
		if err != nil {
			return nil, core.NewEvaluationError(i, err)
		}
		inputs[i] = MergeInputs(e.cfg.DesignVars, x)
	}

	out := make([][]float64, len(batch))
	if async, ok := e.model.(ports.AsyncModelEvaluator); ok && async.AsynchEnabled() {
		for i, x := range inputs {
			if err := async.Submit(ctx, x, i); err != nil {
				return nil, core.NewEvaluationError(i, err)
			}
		}
		results, err := async.Synchronize(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: synchronize: %v", core.ErrEvaluationFailed, err)
		}
		for i := range out {
			r, ok := results[i]
			if !ok {
				return nil, fmt.Errorf("%w for sample %d", core.ErrMissingResponse, i)
			}
			out[i] = r
		}
		return out, nil
	}

	for i, x := range inputs {
		r, err := e.model.Evaluate(ctx, x)
		if err != nil {
			return nil, core.NewEvaluationError(i, err)
		}
		out[i] = r
	}
	return out, nil
}

// MergeInputs builds a model input from the design/state variables followed
// by the uncertain variables. Neither argument is aliased.
func MergeInputs(design, uncertain []float64) []float64 {
	merged := make([]float64, 0, len(design)+len(uncertain))
	merged = append(merged, design...)
	return append(merged, uncertain...)
}

func pickResponse(responses [][]float64, index int) ([]float64, error) {
	values := make([]float64, len(responses))
	for i, r := range responses {
		if index < 0 || index >= len(r) {
			return nil, core.NewDimensionError(fmt.Sprintf("response vector %d", i), len(r), index+1)
		}
		values[i] = r[index]
	}
	return values, nil
}

// RunID identifies the current run
func (e *Engine) RunID() string { return e.runID }

// Status returns the controller state
func (e *Engine) Status() sampling.Status { return e.status }

// State returns the convergence bookkeeping of the current run
func (e *Engine) State() sampling.ConvergenceState { return e.state }

// History returns one record per refinement iteration
func (e *Engine) History() []sampling.IterationRecord {
	out := make([]sampling.IterationRecord, len(e.history))
	copy(out, e.history)
	return out
}

// RepresentativePoints returns a copy of the current mixture components
func (e *Engine) RepresentativePoints() []sampling.RepresentativePoint {
	out := make([]sampling.RepresentativePoint, len(e.points))
	for i, rp := range e.points {
		out[i] = sampling.RepresentativePoint{Point: rp.Point.Clone(), Weight: rp.Weight}
	}
	return out
}

// ExtremeValues returns the observed response ranges, or nil when tracking
// was not requested.
func (e *Engine) ExtremeValues() map[int]sampling.Extremes {
	if e.extremes == nil {
		return nil
	}
	return e.extremes.Extremes()
}
