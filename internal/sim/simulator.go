// Package sim runs a controller against a simulated plant on a simulated
// millisecond clock.
package sim

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/control"
	"github.com/san-kum/sfclab/internal/dynamo"
	"go.uber.org/zap"
)

// Loop plays the external scheduler: every cycle it reads the sensor,
// advances the clock, asks the controller for a control and applies it.
type Loop struct {
	plant      dynamo.Plant
	controller *control.SFC[uint32]
	logger     *zap.Logger
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	x0         control.Vector
}

func New(plant dynamo.Plant, controller *control.SFC[uint32], logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		plant:      plant,
		controller: controller,
		logger:     logger,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (l *Loop) AddMetric(m dynamo.Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o dynamo.Observer) { l.observers = append(l.observers, o) }

// SetInitialEstimate seeds the controller estimate used at the start of Run.
func (l *Loop) SetInitialEstimate(x0 control.Vector) { l.x0 = x0 }

// Controller exposes the controller being driven.
func (l *Loop) Controller() *control.SFC[uint32] { return l.controller }

func (l *Loop) Run(ctx context.Context, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	result := &dynamo.Result{
		Times:     make([]float64, 0, steps),
		States:    make([]dynamo.State, 0, steps),
		Estimates: make([]dynamo.State, 0, steps),
		Outputs:   make([]float64, 0, steps),
		Controls:  make([]float64, 0, steps),
		Intervals: make([]uint32, 0, steps),
		Metrics:   make(map[string]float64),
		Errors:    make([]error, 0),
	}

	for _, m := range l.metrics {
		m.Reset()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	now := cfg.StartMs
	var clockMs uint64
	l.controller.InitState(now, l.x0)

	log := l.logger.With(zap.Int("steps", steps), zap.Uint32("period_ms", cfg.PeriodMs))
	log.Debug("closed loop started", zap.Uint32("start_ms", now))

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			log.Info("closed loop canceled", zap.Int("step", i))
			return result, errors.Wrap(dynamo.ErrContextCanceled, ctx.Err().Error())
		default:
		}

		interval := NextInterval(rng, cfg)
		now += interval
		clockMs += uint64(interval)
		t := float64(clockMs) / 1000

		x := l.plant.State()
		if cfg.ValidateState {
			if err := CheckState(x, cfg.DivergenceLimit); err != nil {
				log.Warn("closed loop diverged", zap.Int("step", i), zap.Float64("t", t), zap.Float64("norm", x.Norm()))
				result.Errors = append(result.Errors, &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: err})
				break
			}
		}

		y := l.plant.Measure()
		xhat := l.controller.EstimateState()
		u := l.controller.Update(y, now)

		if elapsed := l.controller.Elapsed(); elapsed != cfg.PeriodMs {
			result.Irregular++
			log.Debug("irregular control interval",
				zap.Int("step", i),
				zap.Uint32("elapsed_ms", elapsed),
			)
		}

		sample := dynamo.Sample{
			Step:     i,
			Time:     t,
			Interval: l.controller.Elapsed(),
			State:    x,
			Estimate: xhat,
			Output:   y,
			Control:  u,
			Setpoint: l.controller.Setpoint(),
		}
		for _, m := range l.metrics {
			m.Observe(sample)
		}
		for _, obs := range l.observers {
			obs.OnStep(sample)
		}

		l.plant.Step(u)
		result.StepsTaken++

		result.Times = append(result.Times, t)
		result.States = append(result.States, x)
		result.Estimates = append(result.Estimates, xhat)
		result.Outputs = append(result.Outputs, y)
		result.Controls = append(result.Controls, u)
		result.Intervals = append(result.Intervals, sample.Interval)
	}

	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	log.Debug("closed loop finished",
		zap.Int("steps_taken", result.StepsTaken),
		zap.Int("irregular", result.Irregular),
	)
	return result, nil
}

// NextInterval is the nominal period plus uniform jitter in [-JitterMs, JitterMs],
// never less than one tick.
func NextInterval(rng *rand.Rand, cfg dynamo.Config) uint32 {
	if cfg.JitterMs == 0 {
		return cfg.PeriodMs
	}
	j := rng.Int63n(2*int64(cfg.JitterMs)+1) - int64(cfg.JitterMs)
	interval := int64(cfg.PeriodMs) + j
	if interval < 1 {
		interval = 1
	}
	return uint32(interval)
}

// CheckState reports non-finite entries as ErrInvalidState and a norm
// beyond limit as ErrUnstable.
func CheckState(x dynamo.State, limit float64) error {
	if !x.IsValid() {
		return dynamo.ErrInvalidState
	}
	if x.Norm() > limit {
		return dynamo.ErrUnstable
	}
	return nil
}

func validateConfig(cfg dynamo.Config) error {
	if cfg.PeriodMs == 0 {
		return errors.New("period must be positive")
	}
	if cfg.DurationMs < uint64(cfg.PeriodMs) {
		return errors.Errorf("duration %dms shorter than one period %dms", cfg.DurationMs, cfg.PeriodMs)
	}
	if cfg.ValidateState && cfg.DivergenceLimit <= 0 {
		return errors.New("divergence limit must be positive when validating state")
	}
	return nil
}
