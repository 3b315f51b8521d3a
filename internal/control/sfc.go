package control

import "github.com/san-kum/sfclab/internal/dynamo"

// Tick is an unsigned clock reading. Differences wrap, so a single
// overflow of the clock between two updates still yields the true interval.
type Tick interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// SFC is a state-feedback controller with an embedded observer. The zero
// value is not usable; build one with New and call Init before Update.
type SFC[T Tick] struct {
	a    Matrix
	b    Vector
	c    Vector
	k    Vector
	l    Vector
	xref Vector
	rank int

	setpoint float64

	xhat     Vector
	residual float64
	lastTime T
	elapsed  T
	ready    bool
}

// New copies m into fixed storage. It fails if m does not pass Validate.
func New[T Tick](m Model) (*SFC[T], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	n := m.Rank()
	s := &SFC[T]{
		b:        VectorOf(m.B),
		c:        VectorOf(m.C),
		k:        VectorOf(m.K),
		l:        VectorOf(m.L),
		rank:     n,
		setpoint: m.Setpoint,
	}
	for i := 0; i < n; i++ {
		copy(s.a[i][:n], m.A[i])
	}

	cc := 0.0
	for i := 0; i < n; i++ {
		cc += s.c[i] * s.c[i]
	}
	for i := 0; i < n; i++ {
		s.xref[i] = m.Setpoint * s.c[i] / cc
	}
	return s, nil
}

// Init sets the time baseline and clears the estimate. Calling it again
// restarts the observer.
func (s *SFC[T]) Init(now T) {
	s.InitState(now, Vector{})
}

// InitState is Init with an explicit initial estimate. Entries of x0 past
// the rank are ignored.
func (s *SFC[T]) InitState(now T, x0 Vector) {
	var xhat Vector
	copy(xhat[:s.rank], x0[:s.rank])

	s.xhat = xhat
	s.lastTime = now
	s.elapsed = 0
	s.residual = 0
	s.ready = true
}

// Update runs one control cycle and returns the control to apply. The
// control is computed from the estimate held before this call; the estimate
// then advances through the model with the observer correction.
//
// Update panics with dynamo.ErrNotInitialized if Init was never called.
func (s *SFC[T]) Update(y float64, now T) float64 {
	if !s.ready {
		panic(dynamo.ErrNotInitialized)
	}

	s.elapsed = now - s.lastTime
	s.lastTime = now

	n := s.rank

	yhat := 0.0
	for i := 0; i < n; i++ {
		yhat += s.c[i] * s.xhat[i]
	}
	e := y - yhat

	u := 0.0
	for i := 0; i < n; i++ {
		u -= s.k[i] * (s.xhat[i] - s.xref[i])
	}

	var next Vector
	for i := 0; i < n; i++ {
		acc := s.b[i]*u + s.l[i]*e
		for j := 0; j < n; j++ {
			acc += s.a[i][j] * s.xhat[j]
		}
		next[i] = acc
	}

	s.xhat = next
	s.residual = e
	return u
}

// Rank is the number of active state entries.
func (s *SFC[T]) Rank() int { return s.rank }

// Setpoint is the output target the reference state was built from.
func (s *SFC[T]) Setpoint() float64 { return s.setpoint }

// Initialized reports whether Init or InitState has been called.
func (s *SFC[T]) Initialized() bool { return s.ready }

// LastTime is the clock reading passed to the most recent Update or Init.
func (s *SFC[T]) LastTime() T { return s.lastTime }

// Reference is the state xref the feedback law steers toward. Entries past
// the rank are zero.
func (s *SFC[T]) Reference() Vector { return s.xref }

// Estimate is the observer's current state estimate, returned by value.
// Entries past the rank are zero.
func (s *SFC[T]) Estimate() Vector { return s.xhat }

// Elapsed is the interval measured by the most recent Update. It is
// bookkeeping only: the model is pre-discretized for a nominal period and
// is not rescaled by it.
func (s *SFC[T]) Elapsed() T { return s.elapsed }

// Residual is the innovation y - C·xhat seen by the most recent Update.
func (s *SFC[T]) Residual() float64 { return s.residual }

// EstimatedOutput is C·xhat for the current estimate.
func (s *SFC[T]) EstimatedOutput() float64 {
	y := 0.0
	for i := 0; i < s.rank; i++ {
		y += s.c[i] * s.xhat[i]
	}
	return y
}

// EstimateState returns the active part of the estimate as a dynamo.State.
// Unlike Estimate it allocates.
func (s *SFC[T]) EstimateState() dynamo.State {
	out := make(dynamo.State, s.rank)
	copy(out, s.xhat[:s.rank])
	return out
}
