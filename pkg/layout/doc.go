// Package layout computes node-link layouts for production-planning
// hierarchies using a force-directed solver.
//
// # Pipeline
//
// A layout pass runs in four stages:
//
//  1. Measure: each independent tree is walked once to estimate its fully
//     expanded footprint (see Metrics).
//  2. Assign: an Assigner resolves every tree's anchor point, either on a
//     horizontal time axis (TimelineAssigner) or in a grid of cells
//     (GridAssigner).
//  3. Place: a SectorPolicy fans each tree out from its anchor in polar
//     coordinates, giving the solver a topology-shaped starting point
//     instead of random noise.
//  4. Solve: a Simulation of composable named forces (springs, charge,
//     collision, bounding-box separation, anchor pull, axis barrier)
//     iterates the layout toward equilibrium under alpha cooling.
//
// # Engine
//
// Engine wraps all four stages behind an interactive surface: visibility
// toggles, per-tree expansion, drag pins, canvas resizes, and the
// reorganize gesture all mutate the working set or the solver state and
// reheat the simulation so changes animate instead of jumping. Frame
// snapshots the current layout into a self-contained render contract.
//
// The engine is not safe for concurrent use. Drive it from one goroutine
// and snapshot frames between steps.
//
// # Determinism
//
// Identical inputs produce identical layouts: placement jitter comes from a
// seeded generator, lane assignment breaks ties by input order, and no code
// path derives ordering from map iteration.
package layout
