package experiment

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeparaLaMapara/mlopt/internal/learner"
	"github.com/LeparaLaMapara/mlopt/internal/problem"
	"github.com/LeparaLaMapara/mlopt/internal/sample"
	"github.com/LeparaLaMapara/mlopt/internal/solver"
)

func TestSetDefaults(t *testing.T) {
	c := Config{Problem: problem.Config{Family: "assignment", Agents: 2}}
	c.SetDefaults()

	if c.Samples != DefaultSamples {
		t.Errorf("Samples = %d, want %d", c.Samples, DefaultSamples)
	}
	if c.TestSamples != DefaultTestSamples {
		t.Errorf("TestSamples = %d, want %d", c.TestSamples, DefaultTestSamples)
	}
	if c.Tol != 1e-6 {
		t.Errorf("Tol = %g, want 1e-6", c.Tol)
	}
	if c.Infinity != 1e15 {
		t.Errorf("Infinity = %g, want 1e15", c.Infinity)
	}
	if c.DropThreshold != DefaultDropThreshold {
		t.Errorf("DropThreshold = %g, want %g", c.DropThreshold, DefaultDropThreshold)
	}
	if c.Workers != 1 {
		t.Errorf("Workers = %d, want 1", c.Workers)
	}
	if c.GapFraction != DefaultGapFraction {
		t.Errorf("GapFraction = %g, want %g", c.GapFraction, DefaultGapFraction)
	}
	if c.Solver != string(solver.BackendHiGHS) {
		t.Errorf("Solver = %q, want %q", c.Solver, solver.BackendHiGHS)
	}
	if c.Learner.Name != learner.LearnerTree {
		t.Errorf("Learner.Name = %q, want %q", c.Learner.Name, learner.LearnerTree)
	}
	if c.Sampling.Dist != sample.DistBall {
		t.Errorf("Sampling.Dist = %q, want %q", c.Sampling.Dist, sample.DistBall)
	}
}

func TestSetDefaultsCanonicalizesAliases(t *testing.T) {
	c := Config{
		Problem:  problem.Config{Family: "assignment", Agents: 2},
		Solver:   "gonum",
		Learner:  learner.Config{Name: "cart"},
		Sampling: sample.Spec{Dist: "normal"},
	}
	c.SetDefaults()
	if c.Solver != string(solver.BackendSimplex) {
		t.Errorf("Solver = %q, want %q", c.Solver, solver.BackendSimplex)
	}
	if c.Learner.Name != learner.LearnerTree {
		t.Errorf("Learner.Name = %q, want %q", c.Learner.Name, learner.LearnerTree)
	}
	if c.Sampling.Dist != sample.DistGaussian {
		t.Errorf("Sampling.Dist = %q, want %q", c.Sampling.Dist, sample.DistGaussian)
	}
}

func TestSetDefaultsFillsDiscoveryWhenEnabled(t *testing.T) {
	c := Config{
		Problem:   problem.Config{Family: "assignment", Agents: 2},
		Discovery: sample.DiscoveryConfig{Enabled: true},
	}
	c.SetDefaults()
	def := sample.DefaultDiscoveryConfig()
	if c.Discovery.Patience != def.Patience || c.Discovery.MinSamples != def.MinSamples {
		t.Errorf("Discovery = %+v, want defaults %+v", c.Discovery, def)
	}
}

func TestValidate(t *testing.T) {
	valid := baseConfig()
	valid.SetDefaults()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing family", func(c *Config) { c.Problem.Family = "" }},
		{"unknown solver", func(c *Config) { c.Solver = "cplex" }},
		{"unknown learner", func(c *Config) { c.Learner.Name = "svm" }},
		{"unknown distribution", func(c *Config) { c.Sampling.Dist = "cauchy" }},
		{"no samples", func(c *Config) { c.Samples = -1 }},
		{"negative test samples", func(c *Config) { c.TestSamples = -1 }},
		{"bad tolerance", func(c *Config) { c.Tol = -1e-6 }},
		{"bad infinity", func(c *Config) { c.Infinity = -1 }},
		{"threshold over one", func(c *Config) { c.DropThreshold = 1.5 }},
		{"negative timeout", func(c *Config) { c.SolveTimeout = Duration(-time.Second) }},
		{"no workers", func(c *Config) { c.Workers = -1 }},
		{"gap fraction over one", func(c *Config) { c.GapFraction = 2 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate accepted a bad config")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	raw := `
problem:
  family: assignment
  agents: 3
solver: simplex
learner:
  name: knn
  k: 3
sampling:
  dist: gaussian
  stddev: [0.5, 0.5, 0.5]
discovery:
  enabled: true
samples: 50
solve_timeout: 1m30s
workers: 2
`
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Problem.Family != "assignment" || cfg.Problem.Agents != 3 {
		t.Errorf("Problem = %+v", cfg.Problem)
	}
	if cfg.Learner.K != 3 {
		t.Errorf("Learner.K = %d, want 3", cfg.Learner.K)
	}
	if cfg.Sampling.Dist != "gaussian" {
		t.Errorf("Sampling.Dist = %q", cfg.Sampling.Dist)
	}
	if cfg.Samples != 50 {
		t.Errorf("Samples = %d, want 50", cfg.Samples)
	}
	if cfg.SolveTimeout.Std() != 90*time.Second {
		t.Errorf("SolveTimeout = %v, want 1m30s", cfg.SolveTimeout)
	}
	// Defaults fill the rest.
	if cfg.TestSamples != DefaultTestSamples {
		t.Errorf("TestSamples = %d, want default %d", cfg.TestSamples, DefaultTestSamples)
	}
	if cfg.Discovery.Patience == 0 {
		t.Error("Discovery.Patience not defaulted")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig accepted a missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("problem: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Error("LoadConfig accepted malformed YAML")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("samples: 10"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(invalid); err == nil {
		t.Error("LoadConfig accepted a config without a problem family")
	}
}

func TestDurationYAML(t *testing.T) {
	var out struct {
		D Duration `yaml:"d"`
	}
	if err := yaml.Unmarshal([]byte("d: 1m30s"), &out); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if out.D.Std() != 90*time.Second {
		t.Errorf("D = %v, want 1m30s", out.D)
	}

	if err := yaml.Unmarshal([]byte("d: 2.5"), &out); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if out.D.Std() != 2500*time.Millisecond {
		t.Errorf("D = %v, want 2.5s", out.D)
	}

	if err := yaml.Unmarshal([]byte("d: forever"), &out); err == nil {
		t.Error("unmarshal accepted a bogus duration")
	}

	b, err := yaml.Marshal(struct {
		D Duration `yaml:"d"`
	}{D: Duration(90 * time.Second)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), "1m30s") {
		t.Errorf("marshal = %q, want it to contain 1m30s", b)
	}
}

func TestDurationJSON(t *testing.T) {
	var out struct {
		D Duration `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d": "45s"}`), &out); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if out.D.Std() != 45*time.Second {
		t.Errorf("D = %v, want 45s", out.D)
	}

	if err := json.Unmarshal([]byte(`{"d": 3}`), &out); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if out.D.Std() != 3*time.Second {
		t.Errorf("D = %v, want 3s", out.D)
	}

	if err := json.Unmarshal([]byte(`{"d": "bogus"}`), &out); err == nil {
		t.Error("unmarshal accepted a bogus duration")
	}

	b, err := json.Marshal(struct {
		D Duration `json:"d"`
	}{D: Duration(45 * time.Second)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"45s"}` {
		t.Errorf("marshal = %s", b)
	}

	// Round trip through the learner config embedded in Config.
	cfg := Config{Learner: learner.Config{Name: "tree"}, SolveTimeout: Duration(time.Minute)}
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	var back Config
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if back.SolveTimeout.Std() != time.Minute {
		t.Errorf("SolveTimeout = %v, want 1m", back.SolveTimeout)
	}
}
