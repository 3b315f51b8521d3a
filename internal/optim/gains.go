package optim

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/config"
	"github.com/san-kum/sfclab/internal/sim"
)

const settlingTime = "settling_time"

// ApplyGains returns a copy of cfg with gain entries overridden. Names are
// "k<i>" for feedback gains and "l<i>" for observer gains.
func ApplyGains(cfg *config.Config, params map[string]float64) (*config.Config, error) {
	out := cfg.Clone()
	for name, val := range params {
		if len(name) < 2 {
			return nil, errors.Errorf("bad gain name %q", name)
		}
		idx, err := strconv.Atoi(name[1:])
		if err != nil {
			return nil, errors.Wrapf(err, "bad gain name %q", name)
		}

		var vec []float64
		switch name[0] {
		case 'k':
			vec = out.Gains.K
		case 'l':
			vec = out.Gains.L
		default:
			return nil, errors.Errorf("bad gain name %q", name)
		}
		if idx < 0 || idx >= len(vec) {
			return nil, errors.Errorf("gain %q out of range for rank %d", name, len(vec))
		}
		vec[idx] = val
	}
	return out, nil
}

// GainNames lists the tunable gain names for a given rank.
func GainNames(rank int) []string {
	names := make([]string, 0, 2*rank)
	for _, prefix := range []string{"k", "l"} {
		for i := 0; i < rank; i++ {
			names = append(names, fmt.Sprintf("%s%d", prefix, i))
		}
	}
	return names
}

// ClosedLoopCost scores a gain set by simulating cfg and reading metric.
// Diverging runs, and runs whose output never settles, score +Inf.
func ClosedLoopCost(cfg *config.Config, metric string) Evaluate {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		c, err := ApplyGains(cfg, params)
		if err != nil {
			return 0, err
		}
		loop, err := sim.FromConfig(c, nil)
		if err != nil {
			return 0, err
		}

		result, err := loop.Run(ctx, c.Run())
		if err != nil {
			return 0, err
		}
		if len(result.Errors) > 0 {
			return math.Inf(1), nil
		}
		val, ok := result.Metrics[metric]
		if !ok {
			return 0, errors.Errorf("unknown metric %q", metric)
		}
		if metric == settlingTime && val < 0 {
			return math.Inf(1), nil
		}
		return val, nil
	}
}
