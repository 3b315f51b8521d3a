package main

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/sfclab/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	configFile, preset = "", ""
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newConfigCmd(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "integrator" || cfg.Setpoint != 1 {
		t.Errorf("default config = %s setpoint %v", cfg.Name, cfg.Setpoint)
	}
}

func TestLoadConfigFlagsOverridePreset(t *testing.T) {
	cfg, err := loadConfig(newConfigCmd(t, "--preset", "servo", "--setpoint", "0.5", "--jitter", "2", "--seed", "9"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "servo" {
		t.Errorf("name = %s, want servo", cfg.Name)
	}
	if cfg.Setpoint != 0.5 || cfg.Sim.JitterMs != 2 || cfg.Sim.Seed != 9 {
		t.Errorf("overrides not applied: setpoint %v jitter %d seed %d", cfg.Setpoint, cfg.Sim.JitterMs, cfg.Sim.Seed)
	}
	if cfg.Sim.DurationMs != 3000 {
		t.Errorf("unchanged flag replaced preset duration: %d", cfg.Sim.DurationMs)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := loadConfig(newConfigCmd(t, "--preset", "nope")); err == nil {
		t.Error("expected error for unknown preset")
	}
	if _, err := loadConfig(newConfigCmd(t, "--jitter", "50")); err == nil {
		t.Error("expected error for jitter above the period")
	}

	path := filepath.Join(t.TempDir(), "servo.yaml")
	if err := config.Save(path, config.GetPreset("servo")); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(newConfigCmd(t, "--config", path)); err != nil {
		t.Errorf("saved preset rejected: %v", err)
	}
	if _, err := loadConfig(newConfigCmd(t, "--config", path, "--preset", "thermal")); err == nil {
		t.Error("expected error for --preset with --config")
	}
}

func TestGridAround(t *testing.T) {
	got := gridAround(2, 0.5, 3)
	want := []float64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("grid = %v, want %v", got, want)
		}
	}
	if g := gridAround(4, 0.5, 1); len(g) != 1 || g[0] != 4 {
		t.Errorf("single point grid = %v", g)
	}
}

func TestFormatEigen(t *testing.T) {
	if got := formatEigen([]complex128{0.5, complex(0.9, -0.1)}); got != "0.5000  0.9000-0.1000i" {
		t.Errorf("formatEigen = %q", got)
	}
}
