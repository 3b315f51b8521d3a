package sim

import (
	"github.com/san-kum/sfclab/internal/config"
	"github.com/san-kum/sfclab/internal/control"
	"github.com/san-kum/sfclab/internal/metrics"
	"github.com/san-kum/sfclab/internal/plant"
	"go.uber.org/zap"
)

// FromConfig wires a linear plant, a controller and the standard metrics
// for cfg.
func FromConfig(cfg *config.Config, logger *zap.Logger) (*Loop, error) {
	p, err := plant.NewLinear(cfg.Plant.A, cfg.Plant.B, cfg.Plant.C, cfg.Sim.X0)
	if err != nil {
		return nil, err
	}
	if cfg.Sim.Noise > 0 {
		p.SetNoise(cfg.Sim.Noise, cfg.Sim.Seed)
	}

	ctrl, err := control.New[uint32](cfg.ControlModel())
	if err != nil {
		return nil, err
	}

	loop := New(p, ctrl, logger)
	loop.SetInitialEstimate(control.VectorOf(cfg.Sim.Xhat0))
	for _, m := range metrics.Standard() {
		loop.AddMetric(m)
	}
	return loop, nil
}
