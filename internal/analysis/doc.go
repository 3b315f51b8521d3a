// Package analysis provides offline checks and signal tools for a
// controller design.
//
// The controller itself never checks stability at runtime; these tools
// characterize a design before it is deployed:
//
//   - [Check]: closed-loop and observer-error eigenvalues, controllability, observability
//   - [SpectralRadius]: largest eigenvalue magnitude of a discrete-time matrix
//   - [PowerSpectrum]: magnitude spectrum of a recorded signal
//   - [NewPhasePortrait]: 2D projection of a recorded trajectory
//
// # Stability
//
// A discrete-time design is asymptotically stable when both A-BK and
// A-LC have spectral radius below one:
//
//	report, _ := analysis.Check(model)
//	if !report.Stable() {
//	    // the estimate or the plant will diverge
//	}
package analysis
