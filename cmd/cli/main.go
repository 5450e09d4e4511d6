package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"goais/adapters/excel"
	"goais/adapters/model"
	"goais/adapters/seed"
	"goais/adapters/transform"
	"goais/domain/core"
	"goais/domain/sampling"
	"goais/internal"
	"goais/internal/config"
	"goais/internal/errors"
	"goais/internal/importance"
	"goais/internal/testkit"
	"goais/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:   "goais",
		Short: "Adaptive importance sampling for failure probability estimation",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newSeedCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// problemFlags are shared by every command that builds a model
type problemFlags struct {
	problemFile string
	limitState  string
	dim         int
	beta        float64
	seed        int64
	workers     int
}

func (f *problemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.problemFile, "problem", "", "YAML problem file (variables, limit_state, engine)")
	cmd.Flags().StringVar(&f.limitState, "limit-state", "linear", "Built-in limit state when no problem file is given: linear|series|parabolic|cantilever")
	cmd.Flags().IntVar(&f.dim, "dim", 2, "Number of standard normal variables for a built-in limit state")
	cmd.Flags().Float64Var(&f.beta, "beta", 3, "Reliability index of the built-in limit state")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "Random seed for deterministic operations")
	cmd.Flags().IntVar(&f.workers, "workers", -1, "Concurrent model evaluations (0 = synchronous, -1 = AIS_WORKERS)")
}

// problem is a fully assembled reliability problem
type problem struct {
	engine    importance.Config
	runtime   config.RuntimeConfig
	model     ports.ModelEvaluator
	transform ports.ProbabilitySpaceTransform
	logger    *internal.Logger
}

func buildProblem(cmd *cobra.Command, f *problemFlags) (*problem, error) {
	appConfig, err := config.Load()
	if err != nil {
		return nil, err
	}
	p := &problem{
		engine:  appConfig.Engine,
		runtime: appConfig.Runtime,
		logger:  internal.NewLogger(internal.ParseLogLevel(appConfig.Runtime.LogLevel, internal.LogLevelInfo)),
	}

	var ls *model.LimitState
	if f.problemFile != "" {
		prob, engineCfg, err := config.LoadProblem(f.problemFile, p.engine)
		if err != nil {
			return nil, err
		}
		tr, err := prob.Transform()
		if err != nil {
			return nil, err
		}
		ls, err = model.NewLimitState(prob.LimitState.Name, prob.LimitState.Params)
		if err != nil {
			return nil, err
		}
		p.engine = engineCfg
		p.transform = tr
	} else {
		ls, err = model.NewLimitState(f.limitState, map[string]float64{"beta": f.beta})
		if err != nil {
			return nil, err
		}
		p.transform = transform.StandardNormal(f.dim)
	}

	if err := ls.CheckInputs(len(p.engine.DesignVars), p.transform.Dimension()); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	if cmd.Flags().Changed("seed") {
		p.engine.Seed = f.seed
	}
	workers := p.runtime.Workers
	if f.workers >= 0 {
		workers = f.workers
	}
	p.model = ls
	if workers > 0 {
		p.model = model.NewConcurrentEvaluator(ls, workers)
	}
	return p, nil
}

func newRunCmd() *cobra.Command {
	var flags problemFlags
	var seedFile string
	var seedSheet string
	var historyFile string
	var multimodal bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Estimate a failure probability with adaptive importance sampling",
		Long: `Seed the sampler with an LHS batch (or a seed file), then refine the
failure probability estimate with importance sampling.

Engine defaults come from AIS_* environment variables and can be overridden
by the engine section of a problem file.

Example: goais run --limit-state series --beta 2.5 --multimodal --batch-size 2000 --history run.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildProblem(cmd, &flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("multimodal") {
				p.engine.Multimodal = multimodal
			}
			if cmd.Flags().Changed("batch-size") {
				p.engine.BatchSize = batchSize
			}
			if historyFile != "" {
				p.runtime.HistoryFile = historyFile
			}
			return runEstimate(cmd.Context(), p, seedFile, seedSheet)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&seedFile, "seed-file", "", "xlsx/csv seed batch (u-space columns followed by responses)")
	cmd.Flags().StringVar(&seedSheet, "seed-sheet", "Sheet1", "Worksheet holding the seed batch in an xlsx seed file")
	cmd.Flags().StringVar(&historyFile, "history", "", "Write the run history to this xlsx file")
	cmd.Flags().BoolVar(&multimodal, "multimodal", false, "Use multimodal adaptive importance sampling")
	cmd.Flags().IntVar(&batchSize, "batch-size", 1000, "Samples per refinement iteration")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var flags problemFlags
	var samples int

	cmd := &cobra.Command{
		Use:   "seed [output.xlsx]",
		Short: "Evaluate an LHS seed batch and save it for later runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildProblem(cmd, &flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("samples") {
				p.runtime.SeedSamples = samples
			}
			batch, prob, err := lhsSeed(cmd.Context(), p)
			if err != nil {
				return modelError(err)
			}
			if err := excel.WriteSeedBatch(args[0], batch.Samples, batch.Responses); err != nil {
				return err
			}
			fmt.Printf("Wrote %d seed samples to %s (failure fraction %.4g)\n", len(batch.Samples), args[0], prob)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&samples, "samples", 100, "Seed batch size")
	return cmd
}

func lhsSeed(ctx context.Context, p *problem) (seed.Batch, float64, error) {
	rng, err := testkit.NewTestKit().RNGAdapter().SeededStream(ctx, "lhs-seed", p.engine.Seed)
	if err != nil {
		return seed.Batch{}, 0, err
	}
	criteria := sampling.Criteria{Threshold: p.engine.FailureThreshold, CDF: p.engine.CDF}
	return seed.Evaluate(ctx, p.model, p.transform, rng, p.runtime.SeedSamples, p.engine.DesignVars, p.engine.ResponseIndex, criteria)
}

// modelError tags failures raised by the model as external service errors
func modelError(err error) error {
	if core.IsEvaluationError(err) {
		return errors.ExternalServiceError("model", err)
	}
	return err
}

func runEstimate(ctx context.Context, p *problem, seedFile, seedSheet string) error {
	var samples []sampling.Sample
	var responses [][]float64
	var seedProbability float64

	if seedFile != "" {
		batch, err := excel.NewDataReader(seedFile).WithSheet(seedSheet).ReadSeedBatch(p.transform.Dimension())
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		samples, responses = batch.Samples, batch.Responses
		if len(samples) == 0 {
			return fmt.Errorf("seed file %s contains no samples", seedFile)
		}
		criteria := sampling.Criteria{Threshold: p.engine.FailureThreshold, CDF: p.engine.CDF}
		failures := 0
		for _, r := range responses {
			if p.engine.ResponseIndex < len(r) && criteria.IsFailure(r[p.engine.ResponseIndex]) {
				failures++
			}
		}
		seedProbability = float64(failures) / float64(len(samples))
	} else {
		batch, prob, err := lhsSeed(ctx, p)
		if err != nil {
			return errors.Wrap(modelError(err), "seed batch failed")
		}
		samples, responses, seedProbability = batch.Samples, batch.Responses, prob
	}

	initial := p.engine.InitialProbability
	if initial <= 0 {
		initial = seedProbability
	}

	rng, err := testkit.NewTestKit().RNGAdapter().Stream(ctx, "", "refine", p.engine.Seed)
	if err != nil {
		return err
	}
	engine, err := importance.New(p.engine, p.model, p.transform, rng, p.logger)
	if err != nil {
		return err
	}
	if err := engine.Initialize(ctx, samples, responses, p.engine.ResponseIndex, initial, p.engine.FailureThreshold); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	start := time.Now()
	est, err := engine.Run(ctx)
	if err != nil {
		return errors.Wrap(modelError(err), "refinement failed")
	}

	fmt.Printf("\nIMPORTANCE SAMPLING RESULT (run %s)\n", engine.RunID())
	fmt.Printf("Status:              %s\n", est.Status)
	fmt.Printf("Initial probability: %.6g\n", initial)
	fmt.Printf("Probability:         %.6g\n", est.Probability)
	if p.engine.Multimodal {
		fmt.Printf("COV:                 %.4g\n", est.COV)
	}
	fmt.Printf("Iterations:          %d\n", est.Iterations)
	fmt.Printf("Samples:             %d (+%d seed)\n", est.Samples, len(samples))
	fmt.Printf("Elapsed:             %v\n", time.Since(start))
	if est.Unstable > 0 {
		fmt.Printf("Unstable samples:    %d\n", est.Unstable)
	}
	ext := engine.ExtremeValues()
	for _, idx := range sampling.ResponseIndices(ext) {
		fmt.Printf("Response %d range:    [%.6g, %.6g]\n", idx, ext[idx].Min, ext[idx].Max)
	}

	if p.runtime.HistoryFile != "" {
		report := excel.RunReport{
			RunID:    engine.RunID(),
			Estimate: est,
			History:  engine.History(),
			Points:   engine.RepresentativePoints(),
			Extremes: engine.ExtremeValues(),
		}
		if err := excel.WriteReport(p.runtime.HistoryFile, report); err != nil {
			return err
		}
		fmt.Printf("History written to %s\n", p.runtime.HistoryFile)
	}
	return nil
}
