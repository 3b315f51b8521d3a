package optim

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/sfclab/internal/config"
)

func TestApplyGains(t *testing.T) {
	base := config.DefaultConfig()
	out, err := ApplyGains(base, map[string]float64{"k0": 3, "l1": 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if out.Gains.K[0] != 3 || out.Gains.L[1] != 0.2 {
		t.Errorf("gains = %v %v", out.Gains.K, out.Gains.L)
	}
	if base.Gains.K[0] != 2 || base.Gains.L[1] != 0.1 {
		t.Error("ApplyGains modified its input")
	}

	for _, name := range []string{"k", "k9", "x0", "kx", "l-1"} {
		if _, err := ApplyGains(base, map[string]float64{name: 1}); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func TestGainNames(t *testing.T) {
	got := GainNames(2)
	want := []string{"k0", "k1", "l0", "l1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestClosedLoopCost(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sim.DurationMs = 2000
	cost := ClosedLoopCost(cfg, "tracking_rms")

	nominal, err := cost(context.Background(), map[string]float64{"k0": 2})
	if err != nil {
		t.Fatal(err)
	}
	sluggish, err := cost(context.Background(), map[string]float64{"k0": 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if math.IsInf(nominal, 0) || math.IsNaN(nominal) {
		t.Fatalf("nominal cost = %v", nominal)
	}
	if sluggish <= nominal {
		t.Errorf("sluggish gain cost %v should exceed nominal %v", sluggish, nominal)
	}

	if _, err := ClosedLoopCost(cfg, "nope")(context.Background(), nil); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestTuneIntegrator(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sim.DurationMs = 1000

	g := NewGridSearch([]string{"k0"}, [][]float64{{0.2, 0.5, 2}})
	best, _, err := g.Search(context.Background(), ClosedLoopCost(cfg, "tracking_rms"))
	if err != nil {
		t.Fatal(err)
	}
	if best["k0"] != 2 {
		t.Errorf("best k0 = %v, want 2", best["k0"])
	}
}

func TestSettlingTimeNeverSettledLoses(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sim.DurationMs = 2000

	open, err := ClosedLoopCost(cfg, "settling_time")(context.Background(), map[string]float64{"k0": 0})
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(open, 1) {
		t.Errorf("never-settling cost = %v, want +Inf", open)
	}

	g := NewGridSearch([]string{"k0"}, [][]float64{{0, 2}})
	best, score, err := g.Search(context.Background(), ClosedLoopCost(cfg, "settling_time"))
	if err != nil {
		t.Fatal(err)
	}
	if best["k0"] != 2 {
		t.Errorf("best k0 = %v, want 2", best["k0"])
	}
	if score <= 0 || score > 2 {
		t.Errorf("settling time = %v, want within the run", score)
	}
}
