// Package render turns layout frames into shippable artifacts.
//
// A [layout.Frame] is a pure data contract: positioned circles, edges, and
// optional axis decoration. This package owns everything visual that the
// engine deliberately does not: colors, stroke widths, axis styling, and
// output encoding.
//
// # Formats
//
// Four adapters share the same frame input:
//
//   - SVG: hand-assembled markup, the primary interactive-preview format
//   - PNG: rasterized with fogleman/gg for reports and thumbnails
//   - DOT: Graphviz source with pinned positions, for interop with graph
//     tooling; DOTToSVG runs it through the embedded Graphviz engine
//   - JSON: the frame itself, for web frontends that draw client-side
//
// Nodes with non-finite coordinates are skipped by every adapter rather
// than propagated into the output.
package render
