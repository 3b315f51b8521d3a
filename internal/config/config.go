package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/control"
	"github.com/san-kum/sfclab/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPeriodMs        = 10
	DefaultDurationMs      = 5000
	DefaultDivergenceLimit = 1e6
)

type Config struct {
	Name     string      `yaml:"name"`
	Plant    PlantConfig `yaml:"plant"`
	Gains    GainConfig  `yaml:"gains"`
	Setpoint float64     `yaml:"setpoint"`
	Sim      SimConfig   `yaml:"sim"`
}

// PlantConfig is the pre-discretized plant, sampled at Sim.PeriodMs.
type PlantConfig struct {
	A [][]float64 `yaml:"a"`
	B []float64   `yaml:"b"`
	C []float64   `yaml:"c"`
}

type GainConfig struct {
	K []float64 `yaml:"k"`
	L []float64 `yaml:"l"`
}

type SimConfig struct {
	PeriodMs        uint32    `yaml:"period_ms"`
	DurationMs      uint64    `yaml:"duration_ms"`
	JitterMs        uint32    `yaml:"jitter_ms"`
	StartMs         uint32    `yaml:"start_ms"`
	Noise           float64   `yaml:"noise"`
	Seed            int64     `yaml:"seed"`
	X0              []float64 `yaml:"x0,omitempty"`
	Xhat0           []float64 `yaml:"xhat0,omitempty"`
	DivergenceLimit float64   `yaml:"divergence_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "integrator",
		Plant: PlantConfig{
			A: [][]float64{{1, 0.1}, {0, 1}},
			B: []float64{0, 0.1},
			C: []float64{1, 0},
		},
		Gains: GainConfig{
			K: []float64{2, 1},
			L: []float64{0.5, 0.1},
		},
		Setpoint: 1.0,
		Sim: SimConfig{
			PeriodMs:        DefaultPeriodMs,
			DurationMs:      DefaultDurationMs,
			DivergenceLimit: DefaultDivergenceLimit,
		},
	}
}

// Load reads a YAML file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	// An empty list means "start at the origin", same as a missing key.
	if len(cfg.Sim.X0) == 0 {
		cfg.Sim.X0 = nil
	}
	if len(cfg.Sim.Xhat0) == 0 {
		cfg.Sim.Xhat0 = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.ControlModel().Validate(); err != nil {
		return err
	}
	n := len(c.Plant.B)
	if len(c.Sim.X0) != 0 && len(c.Sim.X0) != n {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "x0 has %d entries, want %d", len(c.Sim.X0), n)
	}
	if len(c.Sim.Xhat0) != 0 && len(c.Sim.Xhat0) != n {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "xhat0 has %d entries, want %d", len(c.Sim.Xhat0), n)
	}
	if c.Sim.PeriodMs == 0 {
		return errors.New("sim.period_ms must be positive")
	}
	if c.Sim.JitterMs >= c.Sim.PeriodMs {
		return errors.Errorf("sim.jitter_ms %d must be below the period %d", c.Sim.JitterMs, c.Sim.PeriodMs)
	}
	if c.Sim.Noise < 0 {
		return errors.New("sim.noise must not be negative")
	}
	return nil
}

// ControlModel is the controller view of the configuration.
func (c *Config) ControlModel() control.Model {
	return control.Model{
		A:        c.Plant.A,
		B:        c.Plant.B,
		C:        c.Plant.C,
		K:        c.Gains.K,
		L:        c.Gains.L,
		Setpoint: c.Setpoint,
	}
}

// Run is the simulation view of the configuration.
func (c *Config) Run() dynamo.Config {
	limit := c.Sim.DivergenceLimit
	if limit <= 0 {
		limit = DefaultDivergenceLimit
	}
	return dynamo.Config{
		PeriodMs:        c.Sim.PeriodMs,
		DurationMs:      c.Sim.DurationMs,
		JitterMs:        c.Sim.JitterMs,
		StartMs:         c.Sim.StartMs,
		Seed:            c.Sim.Seed,
		DivergenceLimit: limit,
		ValidateState:   true,
	}
}

// Clone returns a deep copy, so presets can be modified safely.
func (c *Config) Clone() *Config {
	out := *c
	out.Plant.A = make([][]float64, len(c.Plant.A))
	for i, row := range c.Plant.A {
		out.Plant.A[i] = append([]float64(nil), row...)
	}
	out.Plant.B = append([]float64(nil), c.Plant.B...)
	out.Plant.C = append([]float64(nil), c.Plant.C...)
	out.Gains.K = append([]float64(nil), c.Gains.K...)
	out.Gains.L = append([]float64(nil), c.Gains.L...)
	if c.Sim.X0 != nil {
		out.Sim.X0 = append([]float64(nil), c.Sim.X0...)
	}
	if c.Sim.Xhat0 != nil {
		out.Sim.Xhat0 = append([]float64(nil), c.Sim.Xhat0...)
	}
	return &out
}
