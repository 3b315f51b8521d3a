package metrics

import (
	"math"

	"github.com/san-kum/sfclab/internal/dynamo"
)

// TrackingError is the RMS of output minus setpoint.
type TrackingError struct {
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (t *TrackingError) Name() string { return "tracking_rms" }

func (t *TrackingError) Observe(s dynamo.Sample) {
	e := s.Output - s.Setpoint
	t.sumSq += e * e
	t.samples++
}

func (t *TrackingError) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return math.Sqrt(t.sumSq / float64(t.samples))
}

func (t *TrackingError) Reset() {
	t.sumSq = 0
	t.samples = 0
}

// EstimationError is the RMS norm of the true state minus the estimate the
// controller acted on.
type EstimationError struct {
	sumSq   float64
	samples int
}

func NewEstimationError() *EstimationError { return &EstimationError{} }

func (e *EstimationError) Name() string { return "estimation_rms" }

func (e *EstimationError) Observe(s dynamo.Sample) {
	n := s.State.Sub(s.Estimate).Norm()
	e.sumSq += n * n
	e.samples++
}

func (e *EstimationError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *EstimationError) Reset() {
	e.sumSq = 0
	e.samples = 0
}

// SettlingTime is the time after which |output - setpoint| stays within
// band (relative to |setpoint|, or absolute when the setpoint is zero).
// It reports -1 if the output never settles.
type SettlingTime struct {
	band    float64
	settled float64
	inside  bool
}

func NewSettlingTime(band float64) *SettlingTime {
	return &SettlingTime{band: band, settled: -1}
}

func (s *SettlingTime) Name() string { return "settling_time" }

func (s *SettlingTime) Observe(sample dynamo.Sample) {
	limit := s.band
	if sample.Setpoint != 0 {
		limit = s.band * math.Abs(sample.Setpoint)
	}

	if math.Abs(sample.Output-sample.Setpoint) <= limit {
		if !s.inside {
			s.inside = true
			s.settled = sample.Time
		}
		return
	}
	s.inside = false
	s.settled = -1
}

func (s *SettlingTime) Value() float64 { return s.settled }

func (s *SettlingTime) Reset() {
	s.settled = -1
	s.inside = false
}
