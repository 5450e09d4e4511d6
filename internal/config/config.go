package config

import (
	"fmt"
	"os"
	"strconv"

	"goais/adapters/transform"
	"goais/internal/errors"
	"goais/internal/importance"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Engine  importance.Config
	Runtime RuntimeConfig
}

// RuntimeConfig holds settings for how runs are executed and reported
type RuntimeConfig struct {
	Workers     int    // concurrent model evaluations, 0 evaluates synchronously
	SeedSamples int    // size of the LHS seed batch
	HistoryFile string // optional xlsx history output
	LogLevel    string
}

// Load reads engine defaults from environment variables and validates them
func Load() (*Config, error) {
	cfg := &Config{
		Engine:  loadEngineConfig(),
		Runtime: loadRuntimeConfig(),
	}
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func loadEngineConfig() importance.Config {
	def := importance.DefaultConfig()
	return importance.Config{
		BatchSize:            getEnvIntOrDefault("AIS_BATCH_SIZE", def.BatchSize),
		MaxIterations:        getEnvIntOrDefault("AIS_MAX_ITERATIONS", def.MaxIterations),
		ConvergenceTolerance: getEnvFloatOrDefault("AIS_TOLERANCE", def.ConvergenceTolerance),
		CDF:                  getEnvBoolOrDefault("AIS_CDF", def.CDF),
		UseModelBounds:       getEnvBoolOrDefault("AIS_USE_MODEL_BOUNDS", false),
		Multimodal:           getEnvBoolOrDefault("AIS_MULTIMODAL", false),
		TrackExtremeValues:   getEnvBoolOrDefault("AIS_TRACK_EXTREMES", false),
		Seed:                 int64(getEnvIntOrDefault("AIS_SEED", int(def.Seed))),
	}
}

func loadRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Workers:     getEnvIntOrDefault("AIS_WORKERS", 0),
		SeedSamples: getEnvIntOrDefault("AIS_SEED_SAMPLES", 100),
		HistoryFile: getEnvOrDefault("AIS_HISTORY_FILE", ""),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "INFO"),
	}
}

func validateConfig(config *Config) error {
	if err := config.Engine.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Runtime.Workers < 0 {
		return errors.ConfigInvalid("AIS_WORKERS must not be negative")
	}
	if config.Runtime.SeedSamples < 1 {
		return errors.ConfigInvalid("AIS_SEED_SAMPLES must be at least 1")
	}
	return nil
}

// VariableSpec describes one uncertain variable in a problem file
type VariableSpec struct {
	Name         string             `yaml:"name"`
	Distribution string             `yaml:"distribution"`
	Params       map[string]float64 `yaml:"params"`
	Lower        *float64           `yaml:"lower,omitempty"`
	Upper        *float64           `yaml:"upper,omitempty"`
}

// LimitStateSpec names an analytic model and its parameters
type LimitStateSpec struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

// Problem is a reliability problem read from YAML. Engine fields present in
// the file override the environment defaults.
type Problem struct {
	Variables  []VariableSpec `yaml:"variables"`
	LimitState LimitStateSpec `yaml:"limit_state"`
	Engine     yaml.Node      `yaml:"engine"`
}

// LoadProblem parses a problem file and applies its engine section on top
// of base.
func LoadProblem(path string, base importance.Config) (*Problem, importance.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, base, errors.Wrapf(err, "failed to read problem file %s", path)
	}
	return ParseProblem(data, base)
}

// ParseProblem parses problem YAML
func ParseProblem(data []byte, base importance.Config) (*Problem, importance.Config, error) {
	var p Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, base, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("invalid problem file: %w", err))
	}
	if len(p.Variables) == 0 {
		return nil, base, errors.InvalidInput("problem file declares no variables")
	}
	if p.LimitState.Name == "" {
		return nil, base, errors.InvalidInput("problem file declares no limit_state")
	}

	engine := base
	if !p.Engine.IsZero() {
		if err := p.Engine.Decode(&engine); err != nil {
			return nil, base, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("invalid engine section: %w", err))
		}
	}
	if err := engine.Validate(); err != nil {
		return nil, base, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return &p, engine, nil
}

// Transform builds the probability transform declared by the problem
func (p *Problem) Transform() (*transform.Independent, error) {
	vars := make([]transform.Variable, len(p.Variables))
	for i, vs := range p.Variables {
		m, err := transform.NewMarginal(vs.Distribution, vs.Params)
		if err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("variable %q: %w", vs.Name, err))
		}
		v := transform.NewVariable(vs.Name, m)
		if vs.Lower != nil {
			v.Lower = *vs.Lower
		}
		if vs.Upper != nil {
			v.Upper = *vs.Upper
		}
		vars[i] = v
	}
	return transform.NewIndependent(vars...)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
