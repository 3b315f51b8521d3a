// Package viz is the terminal live view of a closed loop, built on Bubble Tea.
//
// Each frame advances the loop by one control period and redraws the output
// against the setpoint, the true and estimated states and the recent control.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	.       - Single step while paused
//	R       - Reset plant and controller
//	Up/Down - Move the setpoint
//	D       - Disturb the plant
//	T       - Cycle color themes
//	?       - Show key hints
package viz
