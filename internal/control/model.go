package control

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/dynamo"
)

// MaxRank is the largest state dimension a controller can hold.
const MaxRank = 4

// Vector is fixed-size storage for a rank-length vector. Entries at or
// beyond the active rank are ignored.
type Vector [MaxRank]float64

// Matrix is fixed-size storage for a rank×rank matrix.
type Matrix [MaxRank][MaxRank]float64

// Model is the caller-side description of a pre-discretized plant and its gains.
type Model struct {
	A        [][]float64
	B        []float64
	C        []float64
	K        []float64
	L        []float64
	Setpoint float64
}

// Rank is implied by the length of B.
func (m Model) Rank() int {
	return len(m.B)
}

// Validate reports the first inconsistency in m. Errors wrap
// dynamo.ErrRankBounds, dynamo.ErrDimensionMismatch or dynamo.ErrInvalidModel.
func (m Model) Validate() error {
	n := m.Rank()
	if n < 1 || n > MaxRank {
		return errors.Wrapf(dynamo.ErrRankBounds, "rank %d not in [1, %d]", n, MaxRank)
	}

	if len(m.A) != n {
		return errors.Wrapf(dynamo.ErrDimensionMismatch, "A has %d rows, want %d", len(m.A), n)
	}
	for i, row := range m.A {
		if len(row) != n {
			return errors.Wrapf(dynamo.ErrDimensionMismatch, "A row %d has %d columns, want %d", i, len(row), n)
		}
		if !finite(row) {
			return errors.Wrapf(dynamo.ErrInvalidModel, "A row %d is not finite", i)
		}
	}

	for _, v := range []struct {
		name string
		vec  []float64
	}{
		{"B", m.B},
		{"C", m.C},
		{"K", m.K},
		{"L", m.L},
	} {
		if len(v.vec) != n {
			return errors.Wrapf(dynamo.ErrDimensionMismatch, "%s has length %d, want %d", v.name, len(v.vec), n)
		}
		if !finite(v.vec) {
			return errors.Wrapf(dynamo.ErrInvalidModel, "%s is not finite", v.name)
		}
	}

	if math.IsNaN(m.Setpoint) || math.IsInf(m.Setpoint, 0) {
		return errors.Wrap(dynamo.ErrInvalidModel, "setpoint is not finite")
	}

	cc := 0.0
	for _, v := range m.C {
		cc += v * v
	}
	if cc == 0 {
		return errors.Wrap(dynamo.ErrInvalidModel, "output vector C is zero")
	}
	return nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// VectorOf copies v into fixed storage, dropping entries past MaxRank.
func VectorOf(v []float64) Vector {
	var out Vector
	copy(out[:], v)
	return out
}
