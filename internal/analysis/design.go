package analysis

import (
	"math/cmplx"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/control"
	"gonum.org/v1/gonum/mat"
)

// rankTol is the relative singular value cutoff used for rank decisions.
const rankTol = 1e-10

var ErrNoConvergence = errors.New("analysis: eigendecomposition did not converge")

// Report summarizes a controller design.
type Report struct {
	Rank             int
	ControllerEigen  []complex128
	ObserverEigen    []complex128
	ControllerRadius float64
	ObserverRadius   float64
	Controllable     bool
	Observable       bool
}

// Stable reports whether both the regulator and the estimator error decay.
func (r Report) Stable() bool {
	return r.ControllerRadius < 1 && r.ObserverRadius < 1
}

// Check analyses m. The model must pass control.Model.Validate.
func Check(m control.Model) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	a := Dense(m.A)
	cl := ClosedLoop(a, m.B, m.K)
	ob := ObserverError(a, m.L, m.C)

	ce, err := Eigenvalues(cl)
	if err != nil {
		return nil, errors.Wrap(err, "closed loop")
	}
	oe, err := Eigenvalues(ob)
	if err != nil {
		return nil, errors.Wrap(err, "observer error")
	}

	n := m.Rank()
	return &Report{
		Rank:             n,
		ControllerEigen:  ce,
		ObserverEigen:    oe,
		ControllerRadius: maxAbs(ce),
		ObserverRadius:   maxAbs(oe),
		Controllable:     Rank(Controllability(a, m.B)) == n,
		Observable:       Rank(Observability(a, m.C)) == n,
	}, nil
}

// Dense converts a row-major slice matrix.
func Dense(a [][]float64) *mat.Dense {
	n := len(a)
	d := mat.NewDense(n, n, nil)
	for i, row := range a {
		d.SetRow(i, row)
	}
	return d
}

// ClosedLoop returns A - B*K for column B and row K.
func ClosedLoop(a mat.Matrix, b, k []float64) *mat.Dense {
	return minusOuter(a, b, k)
}

// ObserverError returns A - L*C, the dynamics of x - xhat.
func ObserverError(a mat.Matrix, l, c []float64) *mat.Dense {
	return minusOuter(a, l, c)
}

func minusOuter(a mat.Matrix, col, row []float64) *mat.Dense {
	var outer mat.Dense
	outer.Outer(1, mat.NewVecDense(len(col), append([]float64(nil), col...)), mat.NewVecDense(len(row), append([]float64(nil), row...)))

	var out mat.Dense
	out.Sub(a, &outer)
	return &out
}

// Controllability returns [B, AB, ..., A^(n-1)B].
func Controllability(a mat.Matrix, b []float64) *mat.Dense {
	n := len(b)
	out := mat.NewDense(n, n, nil)

	v := mat.NewVecDense(n, append([]float64(nil), b...))
	for j := 0; j < n; j++ {
		out.SetCol(j, v.RawVector().Data)
		next := mat.NewVecDense(n, nil)
		next.MulVec(a, v)
		v = next
	}
	return out
}

// Observability returns [C; CA; ...; CA^(n-1)].
func Observability(a mat.Matrix, c []float64) *mat.Dense {
	n := len(c)
	out := mat.NewDense(n, n, nil)

	w := mat.NewVecDense(n, append([]float64(nil), c...))
	for i := 0; i < n; i++ {
		out.SetRow(i, w.RawVector().Data)
		next := mat.NewVecDense(n, nil)
		next.MulVec(a.T(), w)
		w = next
	}
	return out
}

// Rank is the numerical rank of m.
func Rank(m mat.Matrix) int {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return 0
	}
	return svd.Rank(rankTol)
}

func Eigenvalues(m mat.Matrix) ([]complex128, error) {
	var eig mat.Eigen
	if !eig.Factorize(m, mat.EigenNone) {
		return nil, ErrNoConvergence
	}
	return eig.Values(nil), nil
}

// SpectralRadius is the largest eigenvalue magnitude of m.
func SpectralRadius(m mat.Matrix) (float64, error) {
	vals, err := Eigenvalues(m)
	if err != nil {
		return 0, err
	}
	return maxAbs(vals), nil
}

func maxAbs(vals []complex128) float64 {
	r := 0.0
	for _, v := range vals {
		if a := cmplx.Abs(v); a > r {
			r = a
		}
	}
	return r
}
