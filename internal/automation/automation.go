package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/san-kum/cloudmorph/internal/config"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/experiment"
	"github.com/san-kum/cloudmorph/internal/logging"
	"github.com/san-kum/cloudmorph/internal/sim"
	"github.com/san-kum/cloudmorph/internal/skeleton"
	"github.com/san-kum/cloudmorph/internal/storage"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Scenario is a batch of renders described in one YAML file.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun is one render of a scenario. Empty fields keep the base
// configuration's values; Script replaces the preset's script when set.
type ScenarioRun struct {
	Name     string               `yaml:"name"`
	Preset   string               `yaml:"preset"`
	Skeleton string               `yaml:"skeleton"`
	Seed     *int64               `yaml:"seed"`
	Params   map[string]float64   `yaml:"params"`
	Script   []config.PhaseConfig `yaml:"script"`
}

// Outcome is a saved scenario run.
type Outcome struct {
	Name   string
	RunID  string
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %s has no runs", path)
	}

	return &scenario, nil
}

// Configure derives the configuration of one run from base.
func (r ScenarioRun) Configure(base *config.Config) (*config.Config, error) {
	cfg := base.Clone()
	if r.Preset != "" {
		preset := config.GetPreset(r.Preset)
		if preset == nil {
			return nil, fmt.Errorf("unknown preset: %s", r.Preset)
		}
		cfg.Script = preset.Script
		cfg.Name = r.Preset
	}
	if r.Script != nil {
		cfg.Script = r.Script
	}
	if r.Name != "" {
		cfg.Name = r.Name
	}
	if r.Skeleton != "" {
		cfg.Skeleton.Path = r.Skeleton
	}
	if r.Seed != nil {
		cfg.Cloud.Seed = *r.Seed
	}
	for k, v := range r.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// RunScenario renders every run of the scenario in order and saves each to
// st. It stops at the first failure and returns the runs saved so far.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, registry *experiment.Registry, st *storage.Store) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		cfg, err := run.Configure(base)
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}
		logging.Logger().Info("scenario run", "scenario", scenario.Name, "run", i+1, "of", len(scenario.Runs), "name", cfg.Name)

		exp := experiment.New(cfg, registry)
		if err := exp.Setup(); err != nil {
			return outcomes, fmt.Errorf("run %d setup: %w", i+1, err)
		}

		runID, result, err := renderAndSave(ctx, exp, st)
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}

		outcomes = append(outcomes, Outcome{Name: cfg.Name, RunID: runID, Result: result})
	}

	return outcomes, nil
}

func renderAndSave(ctx context.Context, exp *experiment.Experiment, st *storage.Store) (string, *sim.Result, error) {
	cam, closeRenderer, err := exp.Record()
	if err != nil {
		return "", nil, err
	}
	defer closeRenderer()

	result, err := exp.Run(ctx)
	if err != nil {
		return "", nil, err
	}
	runID, err := st.Save(exp.StorageRun(result), cam)
	if err != nil {
		return "", nil, err
	}
	return runID, result, nil
}

// ParameterSweep runs the script once per value of a single parameter
type ParameterSweep struct {
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the metrics of one sweep point. Err is set when the run
// aborted, typically with dynamo.ErrEscapedDomain.
type SweepResult struct {
	ParamValue float64
	Frames     int
	Metrics    map[string]float64
	Err        error
}

func (s *ParameterSweep) values() []float64 {
	if s.NumSteps == 1 {
		return []float64{s.ParamMin}
	}
	return floats.Span(make([]float64, s.NumSteps), s.ParamMin, s.ParamMax)
}

// RunSweep executes a parameter sweep over an already normalized skeleton.
// Nothing is rendered; only metrics are collected.
func RunSweep(ctx context.Context, sweep *ParameterSweep, base *config.Config, sk *skeleton.Skeleton, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one step, got %d", dynamo.ErrParameterBounds, sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)

	for i, paramVal := range sweep.values() {
		cfg := base.Clone()
		if err := cfg.SetParam(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		res := SweepResult{ParamValue: paramVal}
		result, err := runMetrics(ctx, cfg, sk, registry)
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		var serr *dynamo.SimulationError
		switch {
		case err == nil:
			res.Frames, res.Metrics = result.Frames, result.Metrics
		case errors.As(err, &serr):
			res.Err = err
			if result != nil {
				res.Frames, res.Metrics = result.Frames, result.Metrics
			}
		default:
			return results, err
		}
		results = append(results, res)

		logging.Logger().Info("sweep", "point", i+1, "of", sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}

func runMetrics(ctx context.Context, cfg *config.Config, sk *skeleton.Skeleton, registry *experiment.Registry) (*sim.Result, error) {
	exp := experiment.New(cfg, registry)
	if err := exp.Prepare(sk); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// MonteCarloConfig repeats the script with randomly drawn cloud seeds
type MonteCarloConfig struct {
	NumTrials int
	Seed      int64
}

// MonteCarloResult holds the outcome of one seed
type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Settled float64
	Stable  bool // every particle stayed inside the domain
}

// RunMonteCarlo runs the script once per drawn seed. A run that fails with
// dynamo.ErrEscapedDomain is counted as unstable; any other failure aborts.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, base *config.Config, sk *skeleton.Skeleton, registry *experiment.Registry) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, mc.NumTrials)

	rng := rand.New(rand.NewSource(mc.Seed))
	if mc.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < mc.NumTrials; trial++ {
		cfg := base.Clone()
		cfg.Cloud.Seed = rng.Int63()

		r := MonteCarloResult{TrialID: trial, Seed: cfg.Cloud.Seed, Stable: true}
		result, err := runMetrics(ctx, cfg, sk, registry)
		switch {
		case err == nil:
		case errors.Is(err, dynamo.ErrEscapedDomain):
			r.Stable = false
		default:
			return results, err
		}
		if result != nil {
			r.Settled = result.Metrics["settled_fraction"]
		}
		results = append(results, r)

		if (trial+1)%10 == 0 {
			logging.Logger().Info("monte carlo", "trials", trial+1, "of", mc.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
