// Package experiment orchestrates the full pipeline: sample parameters,
// solve the populated problems, extract strategies, train a classifier
// and evaluate its predictions.
package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeparaLaMapara/mlopt/internal/learner"
	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/sample"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
	"github.com/LeparaLaMapara/mlopt/internal/strategy"
)

// Duration wraps time.Duration so configs can say "30s" or a plain
// number of seconds, in both YAML and JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// A bare scalar decodes into either shape, so numbers go first:
	// "2.5" means seconds, "1m30s" falls through to ParseDuration.
	var secs float64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config describes one experiment end to end.
type Config struct {
	Problem   problem.Config         `yaml:"problem" json:"problem"`
	Solver    string                 `yaml:"solver,omitempty" json:"solver,omitempty"`
	Learner   learner.Config         `yaml:"learner,omitempty" json:"learner,omitempty"`
	Sampling  sample.Spec            `yaml:"sampling,omitempty" json:"sampling,omitempty"`
	Discovery sample.DiscoveryConfig `yaml:"discovery,omitempty" json:"discovery,omitempty"`

	// Samples and TestSamples size the training and held-out sets.
	Samples     int    `yaml:"samples,omitempty" json:"samples,omitempty"`
	TestSamples int    `yaml:"test_samples,omitempty" json:"test_samples,omitempty"`
	Seed        uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Tol is the activity tolerance for strategy extraction and
	// feasibility checks.
	Tol float64 `yaml:"tol,omitempty" json:"tol,omitempty"`

	// Infinity is the finite stand-in for unbounded box constraints
	// handed to solver backends.
	Infinity float64 `yaml:"infinity,omitempty" json:"infinity,omitempty"`

	// DropThreshold fails data generation when the dropped fraction
	// strictly exceeds it.
	DropThreshold float64 `yaml:"drop_threshold,omitempty" json:"drop_threshold,omitempty"`

	// SolveTimeout bounds each individual solve; zero means no limit.
	SolveTimeout Duration `yaml:"solve_timeout,omitempty" json:"solve_timeout,omitempty"`

	// Workers sets the number of concurrent solves during generation.
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty"`

	// GapFraction is the share of test samples that also get a
	// warm-started solve for the optimality gap.
	GapFraction float64 `yaml:"gap_fraction,omitempty" json:"gap_fraction,omitempty"`
}

// Defaults used when a config leaves a knob at its zero value.
const (
	DefaultSamples       = 100
	DefaultTestSamples   = 20
	DefaultDropThreshold = 0.2
	DefaultGapFraction   = 1.0
)

// LoadConfig reads a YAML experiment config, applies defaults and
// validates it.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SetDefaults fills zero-valued knobs.
func (c *Config) SetDefaults() {
	if c.Samples == 0 {
		c.Samples = DefaultSamples
	}
	if c.TestSamples == 0 {
		c.TestSamples = DefaultTestSamples
	}
	if c.Tol == 0 {
		c.Tol = strategy.DefaultTol
	}
	if c.Infinity == 0 {
		c.Infinity = solver.DefaultInfinity
	}
	if c.DropThreshold == 0 {
		c.DropThreshold = DefaultDropThreshold
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.GapFraction == 0 {
		c.GapFraction = DefaultGapFraction
	}
	// Canonical names, so a persisted config names its backends even
	// when the input relied on defaults or aliases. Unknown names pass
	// through untouched for Validate to reject.
	c.Solver = string(solver.Normalize(c.Solver))
	if name, err := learner.Normalize(c.Learner.Name); err == nil {
		c.Learner.Name = name
	}
	if dist, err := sample.Normalize(c.Sampling.Dist); err == nil {
		c.Sampling.Dist = dist
	}
	if c.Discovery.Enabled {
		def := sample.DefaultDiscoveryConfig()
		if c.Discovery.Patience == 0 {
			c.Discovery.Patience = def.Patience
		}
		if c.Discovery.MinSamples == 0 {
			c.Discovery.MinSamples = def.MinSamples
		}
	}
}

// Validate rejects configs no run could execute.
func (c Config) Validate() error {
	if c.Problem.Family == "" {
		return fmt.Errorf("problem family is required")
	}
	if _, err := solver.New(c.Solver, solver.Config{}); err != nil {
		return err
	}
	if _, err := learner.Normalize(c.Learner.Name); err != nil {
		return err
	}
	if _, err := sample.Normalize(c.Sampling.Dist); err != nil {
		return err
	}
	if c.Samples < 1 {
		return fmt.Errorf("samples = %d, want at least 1", c.Samples)
	}
	if c.TestSamples < 0 {
		return fmt.Errorf("test_samples = %d, want 0 or more", c.TestSamples)
	}
	if c.Tol <= 0 {
		return fmt.Errorf("tol = %g, want positive", c.Tol)
	}
	if c.Infinity <= 0 {
		return fmt.Errorf("infinity = %g, want positive", c.Infinity)
	}
	if c.DropThreshold < 0 || c.DropThreshold > 1 {
		return fmt.Errorf("drop_threshold = %g, want within [0, 1]", c.DropThreshold)
	}
	if c.SolveTimeout < 0 {
		return fmt.Errorf("solve_timeout is negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers = %d, want at least 1", c.Workers)
	}
	if c.GapFraction < 0 || c.GapFraction > 1 {
		return fmt.Errorf("gap_fraction = %g, want within [0, 1]", c.GapFraction)
	}
	return nil
}
