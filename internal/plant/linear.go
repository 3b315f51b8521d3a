// Package plant simulates the discrete linear plant a controller is wired to.
package plant

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Linear is a discrete-time SISO plant
//
//	x[n+1] = A*x[n] + B*u[n]
//	y[n]   = C*x[n] + v[n]
//
// where v is optional zero-mean Gaussian measurement noise.
type Linear struct {
	a *mat.Dense
	b *mat.VecDense
	c *mat.VecDense
	x *mat.VecDense

	noise float64
	rng   *rand.Rand
}

// NewLinear builds a plant from row-major A and vectors B, C. x0 may be nil
// for a zero initial state.
func NewLinear(a [][]float64, b, c, x0 []float64) (*Linear, error) {
	n := len(b)
	if n == 0 {
		return nil, errors.Wrap(dynamo.ErrRankBounds, "plant has no states")
	}
	if len(a) != n || len(c) != n {
		return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "plant A has %d rows, C has %d entries, want %d", len(a), len(c), n)
	}

	am := mat.NewDense(n, n, nil)
	for i, row := range a {
		if len(row) != n {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "plant A row %d has %d columns, want %d", i, len(row), n)
		}
		am.SetRow(i, row)
	}

	p := &Linear{
		a: am,
		b: mat.NewVecDense(n, append([]float64(nil), b...)),
		c: mat.NewVecDense(n, append([]float64(nil), c...)),
	}
	if err := p.Reset(x0); err != nil {
		return nil, err
	}
	return p, nil
}

// Reset replaces the plant state. An empty x0 zeroes it.
func (p *Linear) Reset(x0 []float64) error {
	n := p.b.Len()
	if len(x0) == 0 {
		p.x = mat.NewVecDense(n, nil)
		return nil
	}
	if len(x0) != n {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "initial state has %d entries, want %d", len(x0), n)
	}
	if !dynamo.State(x0).IsValid() {
		return errors.Wrap(dynamo.ErrInvalidState, "initial state")
	}
	p.x = mat.NewVecDense(n, append([]float64(nil), x0...))
	return nil
}

// SetNoise enables measurement noise with standard deviation sigma drawn
// from a source seeded with seed. sigma <= 0 disables it.
func (p *Linear) SetNoise(sigma float64, seed int64) {
	p.noise = sigma
	p.rng = rand.New(rand.NewSource(seed))
}

func (p *Linear) Rank() int { return p.b.Len() }

func (p *Linear) Step(u float64) {
	next := mat.NewVecDense(p.b.Len(), nil)
	next.MulVec(p.a, p.x)
	next.AddScaledVec(next, u, p.b)
	p.x = next
}

// Output is the noiseless C*x.
func (p *Linear) Output() float64 {
	return mat.Dot(p.c, p.x)
}

// Measure is Output plus measurement noise.
func (p *Linear) Measure() float64 {
	y := p.Output()
	if p.noise > 0 && p.rng != nil {
		y += p.rng.NormFloat64() * p.noise
	}
	return y
}

func (p *Linear) State() dynamo.State {
	return dynamo.State(mat.Col(nil, 0, p.x))
}
