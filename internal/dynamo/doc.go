// Package dynamo provides the core simulation primitives for point-cloud morphing.
//
// The package defines the state shared by every stage of an animation:
//
//   - [Box]: periodic rectangular domain [0,Lx) × [0,Ly)
//   - [Cloud]: parallel position and velocity slices for N particles
//   - [Observer]: receives the cloud after every completed step
//   - [Metric]: accumulates a scalar diagnostic over a run
//
// # Example
//
//	box := dynamo.Box{X: 5.5, Y: 1}
//	c, _ := cloud.NewGrid(box, 0.02, 0.2, rng)
//	box.Wrap(c.Pos)
//
// # Thread Safety
//
// Clouds are mutated in place by every step and are NOT safe for concurrent use.
package dynamo
