package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "integrator" {
		t.Errorf("expected integrator, got %s", cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	run := cfg.Run()
	if run.PeriodMs != DefaultPeriodMs || run.Steps() != DefaultDurationMs/DefaultPeriodMs {
		t.Errorf("unexpected run config: %+v", run)
	}
}

func TestPresetsValid(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s missing", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestGetPresetIsCopy(t *testing.T) {
	cfg := GetPreset("servo")
	cfg.Plant.A[0][0] = 42
	cfg.Gains.K[0] = 42

	again := GetPreset("servo")
	if again.Plant.A[0][0] == 42 || again.Gains.K[0] == 42 {
		t.Error("preset was mutated through a returned copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresetsSorted(t *testing.T) {
	names := ListPresets()
	want := []string{"ball_beam", "integrator", "servo", "thermal"}
	if len(names) != len(want) {
		t.Fatalf("got %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("got %v, want %v", names, want)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ball_beam.yaml")
	if err := Save(path, GetPreset("ball_beam")); err != nil {
		t.Fatalf("save: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "ball_beam" || len(cfg.Plant.A) != 4 || cfg.Sim.PeriodMs != 20 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestSaveLoadEveryPreset(t *testing.T) {
	dir := t.TempDir()
	configs := map[string]*Config{"default": DefaultConfig()}
	for _, name := range ListPresets() {
		configs[name] = GetPreset(name)
	}

	for name, want := range configs {
		path := filepath.Join(dir, name+".yaml")
		if err := Save(path, want); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if len(got.Sim.X0) != len(want.Sim.X0) || len(got.Sim.Xhat0) != len(want.Sim.Xhat0) {
			t.Errorf("%s: initial states changed: x0=%v xhat0=%v", name, got.Sim.X0, got.Sim.Xhat0)
		}
	}
}

func TestSaveOmitsUnsetInitialState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "x0:") || strings.Contains(string(data), "xhat0:") {
		t.Errorf("unset initial states written:\n%s", data)
	}
}

func TestLoadEmptyInitialState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	data := []byte("sim:\n  x0: []\n  xhat0: []\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sim.X0 != nil || cfg.Sim.Xhat0 != nil {
		t.Errorf("empty lists kept: x0=%v xhat0=%v", cfg.Sim.X0, cfg.Sim.Xhat0)
	}

	cfg.Sim.X0 = []float64{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty x0 rejected: %v", err)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("setpoint: 2.5\nsim:\n  duration_ms: 100\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Setpoint != 2.5 || cfg.Sim.DurationMs != 100 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Sim.PeriodMs != DefaultPeriodMs || len(cfg.Gains.K) != 2 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	data := []byte("gains:\n  k: [1, 2, 3]\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestValidateSim(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero period", func(c *Config) { c.Sim.PeriodMs = 0 }},
		{"jitter too large", func(c *Config) { c.Sim.JitterMs = 10 }},
		{"negative noise", func(c *Config) { c.Sim.Noise = -1 }},
		{"x0 length", func(c *Config) { c.Sim.X0 = []float64{1} }},
		{"xhat0 length", func(c *Config) { c.Sim.Xhat0 = []float64{1, 2, 3} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
