// Package automation runs scripted scenarios and Monte Carlo studies on
// configured closed loops.
package automation

import (
	"context"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/config"
	"github.com/san-kum/sfclab/internal/dynamo"
	"github.com/san-kum/sfclab/internal/sim"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset or a config file and overrides a few
// values. Unset overrides keep the base value.
type ScenarioStep struct {
	Preset     string   `yaml:"preset"`
	Config     string   `yaml:"config"`
	Setpoint   *float64 `yaml:"setpoint"`
	DurationMs uint64   `yaml:"duration_ms"`
	JitterMs   *uint32  `yaml:"jitter_ms"`
	Noise      *float64 `yaml:"noise"`
	Seed       int64    `yaml:"seed"`
	SaveAs     string   `yaml:"save_as"`
}

// StepResult is one finished scenario step.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *dynamo.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, errors.Wrapf(err, "parse scenario %s", path)
	}
	if len(scenario.Steps) == 0 {
		return nil, errors.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// Resolve builds the configuration for the step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "" && s.Preset != "":
		return nil, errors.New("step sets both a preset and a config file")
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, errors.Errorf("unknown preset %q (available: %v)", s.Preset, config.ListPresets())
		}
	default:
		return nil, errors.New("step needs a preset or a config file")
	}

	if s.Setpoint != nil {
		cfg.Setpoint = *s.Setpoint
	}
	if s.DurationMs > 0 {
		cfg.Sim.DurationMs = s.DurationMs
	}
	if s.JitterMs != nil {
		cfg.Sim.JitterMs = *s.JitterMs
	}
	if s.Noise != nil {
		cfg.Sim.Noise = *s.Noise
	}
	if s.Seed != 0 {
		cfg.Sim.Seed = s.Seed
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes the steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, errors.Wrapf(err, "step %d", i+1)
		}
		logger.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("config", cfg.Name),
		)

		loop, err := sim.FromConfig(cfg, logger)
		if err != nil {
			return results, errors.Wrapf(err, "step %d setup", i+1)
		}
		result, err := loop.Run(ctx, cfg.Run())
		if err != nil {
			return results, errors.Wrapf(err, "step %d run", i+1)
		}

		results = append(results, StepResult{Name: cfg.Name, Config: cfg, Result: result})
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial plant state of Base uniformly by
// up to Perturbation per entry while the controller starts from Base's
// estimate.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
	Limit        int
}

type MonteCarloResult struct {
	TrialID   int
	InitState dynamo.State
	Stable    bool
	Metrics   map[string]float64
}

// RunMonteCarlo executes the trials in parallel.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, logger *zap.Logger) ([]MonteCarloResult, error) {
	if mc.NumTrials <= 0 {
		return nil, errors.New("monte carlo needs at least one trial")
	}
	if err := mc.Base.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rank := len(mc.Base.Plant.B)
	inits := make([]dynamo.State, mc.NumTrials)

	build := func(seed int64) (*sim.Loop, error) {
		rng := rand.New(rand.NewSource(seed))
		x0 := make(dynamo.State, rank)
		for i := range x0 {
			if i < len(mc.Base.Sim.X0) {
				x0[i] = mc.Base.Sim.X0[i]
			}
			x0[i] += (rng.Float64() - 0.5) * 2 * mc.Perturbation
		}
		inits[seed-mc.Seed] = x0

		cfg := mc.Base.Clone()
		cfg.Sim.X0 = x0
		cfg.Sim.Seed = seed
		return sim.FromConfig(cfg, nil)
	}

	ens := sim.NewEnsemble(build, mc.NumTrials, mc.Seed)
	if mc.Limit > 0 {
		ens.SetLimit(mc.Limit)
	}
	runs, err := ens.Run(ctx, mc.Base.Run())
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		results[i] = MonteCarloResult{
			TrialID:   i,
			InitState: inits[i],
			Stable:    len(r.Errors) == 0,
			Metrics:   r.Metrics,
		}
	}

	stable, unstable := MonteCarloStats(results)
	logger.Info("monte carlo finished", zap.Int("trials", len(results)), zap.Int("stable", stable), zap.Int("unstable", unstable))
	return results, nil
}

// MonteCarloStats counts stable and unstable trials.
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
