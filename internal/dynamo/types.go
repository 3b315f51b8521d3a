package dynamo

import "math"

type State []float64

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Plant is a discrete-time single-input/single-output plant.
type Plant interface {
	// Step advances the plant one sample under control u.
	Step(u float64)
	// Measure returns the sensor reading for the current state.
	Measure() float64
	State() State
	Rank() int
}

// Sample is one control cycle as seen from outside the controller.
type Sample struct {
	Step     int
	Time     float64
	Interval uint32
	State    State
	Estimate State
	Output   float64
	Control  float64
	Setpoint float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

// Config drives one closed-loop run. Times are in clock ticks (milliseconds).
type Config struct {
	PeriodMs        uint32
	DurationMs      uint64
	JitterMs        uint32
	StartMs         uint32
	Seed            int64
	DivergenceLimit float64
	ValidateState   bool
}

func DefaultConfig() Config {
	return Config{
		PeriodMs:        10,
		DurationMs:      5000,
		DivergenceLimit: 1e6,
		ValidateState:   true,
	}
}

// Steps returns the number of control cycles the run covers.
func (c Config) Steps() int {
	if c.PeriodMs == 0 {
		return 0
	}
	return int(c.DurationMs / uint64(c.PeriodMs))
}

type Result struct {
	Times     []float64
	States    []State
	Estimates []State
	Outputs   []float64
	Controls  []float64
	Intervals []uint32
	Metrics   map[string]float64
	// Irregular counts cycles whose measured interval differed from the nominal period.
	Irregular  int
	StepsTaken int
	Errors     []error
}
