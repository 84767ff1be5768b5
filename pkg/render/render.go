package render

import (
	"encoding/json"
	"math"

	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/layout"
)

// =============================================================================
// Formats
// =============================================================================

// Format identifies an output artifact type.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[Format]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// ParseFormat validates a format string from CLI flags or API requests.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !ValidFormats[f] {
		return "", errors.New(errors.ErrCodeInvalidFormat, "unknown output format %q (valid: svg, png, dot, json)", s)
	}
	return f, nil
}

// =============================================================================
// Rendering
// =============================================================================

// Options configures visual styling shared across adapters.
type Options struct {
	// Background is the canvas fill. Empty means transparent for SVG and
	// white for PNG, which cannot be transparent in reports.
	Background string
	// EdgeOpacity controls link visibility, 0..1. Zero means the default.
	EdgeOpacity float64
}

// DefaultOptions returns the standard styling.
func DefaultOptions() Options {
	return Options{EdgeOpacity: 0.45}
}

func (o Options) edgeOpacity() float64 {
	if o.EdgeOpacity <= 0 || o.EdgeOpacity > 1 {
		return 0.45
	}
	return o.EdgeOpacity
}

// Render dispatches a frame to the adapter for the requested format.
func Render(f layout.Frame, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatSVG:
		return SVG(f, opts), nil
	case FormatPNG:
		return PNG(f, opts)
	case FormatDOT:
		return []byte(DOT(f)), nil
	case FormatJSON:
		return JSON(f)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown output format %q", format)
}

// JSON encodes the frame itself, for clients that draw in the browser.
// Non-finite nodes are dropped here too: encoding/json rejects NaN, and a
// client should never see a node the solver could not position.
func JSON(f layout.Frame) ([]byte, error) {
	clean := f
	clean.Nodes = make([]layout.FrameNode, 0, len(f.Nodes))
	kept := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if drawable(n) {
			clean.Nodes = append(clean.Nodes, n)
			kept[n.ID] = true
		}
	}
	clean.Edges = make([]layout.FrameEdge, 0, len(f.Edges))
	for _, e := range f.Edges {
		if kept[e.SourceID] && kept[e.TargetID] {
			clean.Edges = append(clean.Edges, e)
		}
	}
	data, err := json.MarshalIndent(clean, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode frame")
	}
	return data, nil
}

// drawable filters out nodes the solver could not position. The engine
// repairs non-finite coordinates, but a frame snapshotted mid-repair must
// still render.
func drawable(n layout.FrameNode) bool {
	return !math.IsNaN(n.X) && !math.IsInf(n.X, 0) &&
		!math.IsNaN(n.Y) && !math.IsInf(n.Y, 0) &&
		n.Radius > 0
}

// nodeByID indexes a frame's nodes for edge endpoint lookup.
func nodeByID(f layout.Frame) map[string]layout.FrameNode {
	m := make(map[string]layout.FrameNode, len(f.Nodes))
	for _, n := range f.Nodes {
		m[n.ID] = n
	}
	return m
}
