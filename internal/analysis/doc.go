// Package analysis summarizes the per-step traces of a run: how fast the
// cloud calms down, when it settles on the skeleton and whether the kinetic
// energy oscillates.
package analysis
