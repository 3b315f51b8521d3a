package sim

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/sfclab/internal/config"
	"github.com/san-kum/sfclab/internal/metrics"
)

func TestFromConfigPresets(t *testing.T) {
	for _, name := range config.ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := config.GetPreset(name)
			loop, err := FromConfig(cfg, nil)
			if err != nil {
				t.Fatal(err)
			}

			result, err := loop.Run(context.Background(), cfg.Run())
			if err != nil {
				t.Fatal(err)
			}
			if len(result.Errors) > 0 {
				t.Fatalf("preset diverged: %v", result.Errors[0])
			}
			for _, m := range metrics.Names() {
				if _, ok := result.Metrics[m]; !ok {
					t.Errorf("missing metric %s", m)
				}
			}
			if v := result.Metrics["tracking_rms"]; math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("tracking_rms = %v", v)
			}
		})
	}
}

func TestFromConfigInitialEstimate(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sim.Xhat0 = []float64{0.5, 0}
	// first cycle: y=0, yhat=0.5, e=-0.5, u=-(2*(0.5-1)) = 1
	loop, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	run := cfg.Run()
	run.DurationMs = uint64(run.PeriodMs)
	result, err := loop.Run(context.Background(), run)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(result.Controls[0]-1) > 1e-12 {
		t.Errorf("u0 = %v, want 1", result.Controls[0])
	}
	if math.Abs(result.Estimates[0][0]-0.5) > 1e-12 {
		t.Errorf("xhat0 = %v, want 0.5", result.Estimates[0][0])
	}
}
