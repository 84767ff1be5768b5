// Package pkg provides the core libraries for planviz plan visualization.
//
// # Overview
//
// Planviz turns production plans into node-link diagrams. A plan is a forest
// of project trees (project → article → assembly → work package → operation)
// that is measured, anchored, placed and then settled by a force solver. The
// pkg directory is organized into these areas:
//
//  1. [hierarchy] - Plan domain model (nodes, forests, validation, JSON files)
//  2. [layout] - Tree metrics, anchoring, placement and the force engine
//  3. [render] - Frame adapters (SVG, PNG, DOT, JSON)
//  4. [pipeline] - Orchestration (load → layout → render) with caching
//  5. [cache] - File, Redis and null cache backends with namespaced keys
//  6. [observability] - Hook interfaces for engine and pipeline events
//  7. [errors] - Structured error codes shared across the module
//
// # Architecture
//
// The typical data flow through planviz:
//
//	plan.json
//	    ↓ hierarchy.ReadForestFile
//	hierarchy.Forest
//	    ↓ layout.NewEngine / Engine.Settle
//	layout.Frame
//	    ↓ render.Render
//	SVG / PNG / DOT / JSON artifacts
//
// The pipeline package wraps this flow with caching and timing; the CLI and
// the HTTP server under internal/ are thin shells over it.
package pkg
