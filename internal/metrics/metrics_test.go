package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/sfclab/internal/dynamo"
)

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Error("empty effort should be 0")
	}
	for _, u := range []float64{1, -3, 2} {
		m.Observe(dynamo.Sample{Control: u})
	}
	if m.Value() != 2 {
		t.Errorf("effort = %v, want 2", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("reset should clear effort")
	}
}

func TestStability(t *testing.T) {
	m := NewStability(1.0)
	m.Observe(dynamo.Sample{State: dynamo.State{0.5, 0.2}})
	m.Observe(dynamo.Sample{State: dynamo.State{0.5, 2.0}})
	m.Observe(dynamo.Sample{State: dynamo.State{math.NaN(), 0}})
	m.Observe(dynamo.Sample{State: dynamo.State{0, 0}})

	if m.Value() != 0.5 {
		t.Errorf("stability = %v, want 0.5", m.Value())
	}
}

func TestTrackingError(t *testing.T) {
	m := NewTrackingError()
	m.Observe(dynamo.Sample{Output: 1, Setpoint: 1})
	m.Observe(dynamo.Sample{Output: 3, Setpoint: 1})

	if math.Abs(m.Value()-math.Sqrt(2)) > 1e-12 {
		t.Errorf("rms = %v, want sqrt(2)", m.Value())
	}
}

func TestEstimationError(t *testing.T) {
	m := NewEstimationError()
	m.Observe(dynamo.Sample{State: dynamo.State{3, 4}, Estimate: dynamo.State{0, 0}})
	m.Observe(dynamo.Sample{State: dynamo.State{1, 1}, Estimate: dynamo.State{1, 1}})

	want := math.Sqrt(25.0 / 2)
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("rms = %v, want %v", m.Value(), want)
	}
}

func TestSettlingTime(t *testing.T) {
	m := NewSettlingTime(0.05)
	outputs := []float64{0, 0.5, 0.97, 1.1, 0.99, 1.01, 1.0}
	for i, y := range outputs {
		m.Observe(dynamo.Sample{Time: float64(i), Output: y, Setpoint: 1})
	}
	if m.Value() != 4 {
		t.Errorf("settling time = %v, want 4", m.Value())
	}

	m.Observe(dynamo.Sample{Time: 7, Output: 2, Setpoint: 1})
	if m.Value() != -1 {
		t.Errorf("settling time after leaving band = %v, want -1", m.Value())
	}

	m.Reset()
	m.Observe(dynamo.Sample{Time: 0, Output: 0.01, Setpoint: 0})
	if m.Value() != 0 {
		t.Errorf("zero setpoint settling = %v, want 0", m.Value())
	}
}

func TestStandardReturnsFreshMetrics(t *testing.T) {
	a, b := Standard(), Standard()
	a[0].Observe(dynamo.Sample{Control: 5})
	if b[0].Value() != 0 {
		t.Error("Standard should not share metric instances")
	}

	want := []string{"control_effort", "tracking_rms", "estimation_rms", "settling_time"}
	names := Names()
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
