package config

import "sort"

// Presets are ready-made designs. Gains were placed offline for the listed
// sample period; every preset passes analysis.Check.
var Presets = map[string]*Config{
	// position/velocity integrator
	"integrator": DefaultConfig(),
	// DC motor position loop, tau = 0.1s
	"servo": {
		Name: "servo",
		Plant: PlantConfig{
			A: [][]float64{{1.0, 0.0095162582}, {0.0, 0.90483742}},
			B: []float64{0.0004837418, 0.095162582},
			C: []float64{1, 0},
		},
		Gains: GainConfig{
			K: []float64{12.41653, 0.61477026},
			L: []float64{0.45933111, 3.4497101},
		},
		Setpoint: 1.0,
		Sim:      SimConfig{PeriodMs: 10, DurationMs: 3000, DivergenceLimit: DefaultDivergenceLimit},
	},
	// ball on a beam driven by beam angular acceleration
	"ball_beam": {
		Name: "ball_beam",
		Plant: PlantConfig{
			A: [][]float64{
				{1.0, 0.02, -0.0014, -9.3333333e-06},
				{0.0, 1.0, -0.14, -0.0014},
				{0.0, 0.0, 1.0, 0.02},
				{0.0, 0.0, 0.0, 1.0},
			},
			B: []float64{-4.6666667e-08, -9.3333333e-06, 0.0002, 0.02},
			C: []float64{1, 0, 0, 0},
		},
		Gains: GainConfig{
			K: []float64{-6.7555013, -9.6562973, 38.076717, 9.8470644},
			L: []float64{0.69133645, 8.4314481, -6.9795726, -15.569461},
		},
		Setpoint: 0.2,
		Sim:      SimConfig{PeriodMs: 20, DurationMs: 10000, DivergenceLimit: DefaultDivergenceLimit},
	},
	// first-order thermal mass held at ambient after a disturbance
	"thermal": {
		Name: "thermal",
		Plant: PlantConfig{
			A: [][]float64{{0.95122942}},
			B: []float64{0.048770575},
			C: []float64{1},
		},
		Gains: GainConfig{
			K: []float64{2.7167748},
			L: []float64{0.40241779},
		},
		Setpoint: 0,
		Sim: SimConfig{
			PeriodMs:        100,
			DurationMs:      10000,
			Noise:           0.01,
			X0:              []float64{5},
			DivergenceLimit: DefaultDivergenceLimit,
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
