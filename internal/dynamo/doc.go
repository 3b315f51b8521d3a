// Package dynamo provides the shared primitives of the closed-loop lab.
//
// The package defines the vocabulary used between the controller, the
// simulated plant and the tooling around them:
//
//   - [State]: vector representing a plant state or a state estimate
//   - [Plant]: a discrete-time plant that consumes a control and produces an output
//   - [Sample]: one control cycle as seen by metrics and observers
//   - [Metric], [Observer]: hooks attached to a simulation run
//   - [Config], [Result]: inputs and outputs of a simulation run
//
// # Example
//
//	p, _ := plant.NewLinear(a, b, c, nil)
//	ctrl, _ := control.New[uint32](model)
//	loop := sim.New(p, ctrl, logger)
//	result, _ := loop.Run(ctx, cfg)
//
// # Thread Safety
//
// Plants and controllers are NOT thread-safe. For parallel runs,
// use sim.Ensemble which builds an independent loop per run.
package dynamo
