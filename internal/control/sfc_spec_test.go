package control_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sfclab/internal/control"
	"github.com/san-kum/sfclab/internal/dynamo"
)

var _ = Describe("SFC", func() {
	var (
		model control.Model
		ctrl  *control.SFC[uint16]
	)

	BeforeEach(func() {
		model = control.Model{
			A:        [][]float64{{1, 0.1}, {0, 1}},
			B:        []float64{0, 0.1},
			C:        []float64{1, 0},
			K:        []float64{2, 1},
			L:        []float64{0.5, 0.1},
			Setpoint: 1.0,
		}
		var err error
		ctrl, err = control.New[uint16](model)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("reports the rank implied by B", func() {
			Expect(ctrl.Rank()).To(Equal(2))
			Expect(ctrl.Setpoint()).To(Equal(1.0))
		})

		It("does not establish a time baseline", func() {
			Expect(ctrl.Initialized()).To(BeFalse())
			Expect(func() { ctrl.Update(0, 10) }).To(PanicWith(MatchError(dynamo.ErrNotInitialized)))
		})

		It("rejects inconsistent dimensions", func() {
			model.L = []float64{1}
			_, err := control.New[uint16](model)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})
	})

	Describe("update", func() {
		BeforeEach(func() {
			ctrl.Init(0)
		})

		It("drives the estimate toward the setpoint", func() {
			u := ctrl.Update(0, 10)
			Expect(u).To(BeNumerically("~", 2.0, 1e-9))

			x := ctrl.Estimate()
			Expect(x[0]).To(BeNumerically("~", 0.0, 1e-9))
			Expect(x[1]).To(BeNumerically("~", 0.2, 1e-9))
		})

		It("keeps the clock wraparound-safe", func() {
			ctrl.Init(65530)
			ctrl.Update(0, 6)
			Expect(ctrl.Elapsed()).To(Equal(uint16(12)))
		})

		It("regulates the simulated integrator to the setpoint", func() {
			a := model.A
			b := model.B
			x := []float64{0, 0}
			for i := 1; i <= 800; i++ {
				u := ctrl.Update(x[0], uint16(i*10))
				x = []float64{
					a[0][0]*x[0] + a[0][1]*x[1] + b[0]*u,
					a[1][0]*x[0] + a[1][1]*x[1] + b[1]*u,
				}
			}
			Expect(x[0]).To(BeNumerically("~", model.Setpoint, 1e-3))
			Expect(ctrl.EstimatedOutput()).To(BeNumerically("~", model.Setpoint, 1e-3))
		})
	})
})
