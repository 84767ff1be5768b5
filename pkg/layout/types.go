package layout

import (
	"math"

	"github.com/planviz/planviz/pkg/hierarchy"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Mode selects how independent trees are anchored on the canvas.
type Mode string

const (
	// ModeRadial places trees in a grid of cells, each fanning out radially.
	ModeRadial Mode = "radial"
	// ModeTimeline anchors each tree on a horizontal time axis at its
	// delivery date, alternating above and below the axis.
	ModeTimeline Mode = "timeline"
)

// ValidModes is the set of supported layout modes.
var ValidModes = map[Mode]bool{
	ModeRadial:   true,
	ModeTimeline: true,
}

// TypeClass is the closed set of visual node classes. It mirrors
// hierarchy.NodeType one to one; the engine keeps its own enum so the
// output contract does not leak hierarchy internals to render adapters.
type TypeClass int

const (
	ClassProject TypeClass = iota
	ClassArticle
	ClassAssembly
	ClassWorkPackage
	ClassOperation
)

// classNames is exhaustive over TypeClass.
var classNames = map[TypeClass]string{
	ClassProject:     "project",
	ClassArticle:     "article",
	ClassAssembly:    "assembly",
	ClassWorkPackage: "work_package",
	ClassOperation:   "operation",
}

// String returns the serialized class name.
func (t TypeClass) String() string { return classNames[t] }

// classFor maps a hierarchy node type to its visual class.
func classFor(t hierarchy.NodeType) TypeClass {
	switch t {
	case hierarchy.TypeProject:
		return ClassProject
	case hierarchy.TypeArticle:
		return ClassArticle
	case hierarchy.TypeAssembly:
		return ClassAssembly
	case hierarchy.TypeWorkPackage:
		return ClassWorkPackage
	default:
		return ClassOperation
	}
}

// =============================================================================
// Engine-Owned Working Set
// =============================================================================

// Node is the engine's mutable working representation of one visible
// hierarchy node. The set is rebuilt from scratch whenever visibility
// changes; only position and velocity are carried forward by ID so the
// animation does not restart from nothing.
type Node struct {
	ID       string
	Class    TypeClass
	RootID   string // which independent tree this node belongs to
	ParentID string // empty for roots
	BranchID string // depth-1 ancestor; empty for roots
	Depth    int

	X, Y   float64
	VX, VY float64
	// FX/FY pin the node while a drag gesture is active. While set, the
	// integrator forces position to the pin and zeroes velocity.
	FX, FY *float64

	Radius float64
	// Angle is the polar angle inherited from placement. Children default
	// to spreading around it, which keeps a branch angularly coherent.
	Angle float64

	Overdue   bool
	Completed bool
}

// Pinned reports whether the node is held by a drag gesture.
func (n *Node) Pinned() bool { return n.FX != nil && n.FY != nil }

// Edge connects a visible parent to a visible child, derived 1:1 from the
// hierarchy and rebuilt alongside the node set.
type Edge struct {
	SourceID string
	TargetID string
	// Leaf marks edges whose target is an operation; they use a shorter
	// spring rest length so leaf clusters stay compact.
	Leaf bool
}

// Point is a canvas coordinate.
type Point struct {
	X float64
	Y float64
}

// Size is an estimated footprint in canvas units.
type Size struct {
	W float64
	H float64
}

// Canvas describes the drawing surface the engine lays out into.
type Canvas struct {
	Width  float64
	Height float64
}

// AxisY returns the vertical position of the time axis in timeline mode.
func (c Canvas) AxisY() float64 { return c.Height / 2 }

// TreeMeta holds per-tree lane assignment and anchoring state.
// One exists per independent root; the slice order matches forest order,
// which is what makes lane assignment deterministic under anchor ties.
type TreeMeta struct {
	RootID string

	// AnchorX is the projected delivery date (timeline mode input).
	AnchorX float64
	// LaneIndex counts trees already placed on the same side of the axis.
	LaneIndex int
	// AboveAxis is meaningful in timeline mode only.
	AboveAxis bool
	// Anchor is the resolved point the tree's root is pulled toward.
	Anchor Point
	// Footprint is the estimated fully-expanded extent.
	Footprint Size
	// TreeRadius bounds the radial spread in grid cells.
	TreeRadius float64
	// NodeCount tracks currently visible nodes; separation forces use it
	// as the tree's mass when splitting overlap corrections.
	NodeCount int
}

// =============================================================================
// Output Contract
// =============================================================================

// FrameNode is one positioned node as handed to a render adapter.
type FrameNode struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"radius"`
	Class   string  `json:"type_class"`
	Overdue bool    `json:"overdue,omitempty"`
}

// FrameEdge is one edge as handed to a render adapter.
type FrameEdge struct {
	SourceID string `json:"source"`
	TargetID string `json:"target"`
}

// AxisTick is a labeled date position on the time axis.
type AxisTick struct {
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// Frame is the engine's complete per-tick output: everything a render
// adapter needs and nothing more. Painting, hit testing, and tooltips are
// the adapter's problem.
type Frame struct {
	Mode   Mode        `json:"mode"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	AxisY  float64     `json:"axis_y,omitempty"`
	Ticks  []AxisTick  `json:"ticks,omitempty"`
	Nodes  []FrameNode `json:"nodes"`
	Edges  []FrameEdge `json:"edges"`
}

// =============================================================================
// Geometry Helpers
// =============================================================================

// finite reports whether v is a usable coordinate.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// box is an axis-aligned bounding rectangle.
type box struct {
	minX, minY, maxX, maxY float64
}

func emptyBox() box {
	return box{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
}

// extend grows the box to include a circle of the given radius plus margin.
func (b *box) extend(x, y, radius, margin float64) {
	if !finite(x) || !finite(y) {
		return
	}
	pad := radius + margin
	b.minX = math.Min(b.minX, x-pad)
	b.minY = math.Min(b.minY, y-pad)
	b.maxX = math.Max(b.maxX, x+pad)
	b.maxY = math.Max(b.maxY, y+pad)
}

// overlap returns the positive overlap extents of two boxes, or zeros if
// they are disjoint on either axis.
func (b box) overlap(o box) (dx, dy float64) {
	dx = math.Min(b.maxX, o.maxX) - math.Max(b.minX, o.minX)
	dy = math.Min(b.maxY, o.maxY) - math.Max(b.minY, o.minY)
	if dx <= 0 || dy <= 0 {
		return 0, 0
	}
	return dx, dy
}

func (b box) valid() bool { return b.minX <= b.maxX && b.minY <= b.maxY }

func (b box) centerX() float64 { return (b.minX + b.maxX) / 2 }
func (b box) centerY() float64 { return (b.minY + b.maxY) / 2 }
