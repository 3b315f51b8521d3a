// Package control provides the discrete state-feedback controller with an
// embedded Luenberger observer.
//
// [SFC] keeps a running estimate of the plant state, advances it through a
// fixed linear model and corrects it with the measured output:
//
//	yhat  = C·xhat
//	e     = y - yhat
//	u     = -K·(xhat - xref)
//	xhat' = A·xhat + B·u + L·e
//
// xref is the minimum-norm state whose output C·xref equals the setpoint,
// so the feedback term opposes deviation of the estimate from the target.
//
// # Usage
//
//	ctrl, err := control.New[uint32](control.Model{A: a, B: b, C: c, K: k, L: l, Setpoint: 1})
//	ctrl.Init(millis())
//	for {
//	    u := ctrl.Update(readSensor(), millis())
//	    drive(u)
//	}
//
// All storage is fixed size ([MaxRank]); Update does not allocate. An SFC
// must be driven by a single caller.
package control
