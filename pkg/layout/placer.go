package layout

import (
	"math"
	"math/rand"
)

// =============================================================================
// SectorPolicy - Pluggable Angular Strategy
// =============================================================================

// SectorPolicy decides how much angular room a tree and its branches get.
// Radial views hand each tree a full circle; timeline views confine it to a
// narrow cone opening away from the axis. Everything else about placement
// (radius growth, angle inheritance, jitter) is shared.
type SectorPolicy interface {
	// RootSector returns the center angle and total width of the sector the
	// depth-1 children spread across.
	RootSector(meta *TreeMeta) (center, width float64)
	// ChildSpread returns the arc available to the children of a node at
	// the given depth. Deeper levels get narrower arcs so a branch stays
	// visually grouped under its depth-1 ancestor.
	ChildSpread(depth int, cfg Config) float64
	// FullCircle reports whether RootSector spans the full circle, in which
	// case sibling spreading wraps instead of centering.
	FullCircle() bool
}

// RadialSectors is the policy for radial (grid-cell) views: depth-1 branches
// divide the full circle, deeper levels get 1/depth of the branch arc.
type RadialSectors struct{}

func (RadialSectors) RootSector(*TreeMeta) (float64, float64) {
	return 0, 2 * math.Pi
}

func (RadialSectors) ChildSpread(depth int, cfg Config) float64 {
	if depth < 1 {
		depth = 1
	}
	return cfg.BranchSpread / float64(depth)
}

func (RadialSectors) FullCircle() bool { return true }

// ConeSectors is the policy for timeline views: the whole tree fans out in a
// narrow cone pointing away from the time axis on the tree's assigned side.
// Canvas y grows downward, so "up" is -pi/2.
type ConeSectors struct{}

func (ConeSectors) RootSector(meta *TreeMeta) (float64, float64) {
	center := math.Pi / 2
	if meta.AboveAxis {
		center = -math.Pi / 2
	}
	return center, 0 // width filled in by caller from cfg.ConeAngle
}

func (ConeSectors) ChildSpread(depth int, cfg Config) float64 {
	if depth < 1 {
		depth = 1
	}
	return cfg.ConeAngle * 0.8 / float64(depth)
}

func (ConeSectors) FullCircle() bool { return false }

// =============================================================================
// Initial Placement
// =============================================================================

// Place assigns polar angles to every node of one tree and coordinates to
// those selected by needsPosition. Angles are always recomputed - they are
// deterministic and cheap, and keeping them current preserves branch
// coherence across rebuilds. Positions are only written for new nodes so a
// rebuild does not teleport nodes the user is already watching.
//
// nodes must be in pre-order with the tree root first. New nodes are placed
// relative to their parent's current live position, not the parent's
// original placement, so nodes revealed by an expand animate outward from
// where their parent actually is.
//
// A small deterministic jitter is added to every fresh coordinate. Two nodes
// initialized at the exact same point produce a zero-distance force step and
// with it NaN positions; the jitter exists to break those coincidences.
func Place(nodes []*Node, childrenOf func(id string) []*Node, meta *TreeMeta, policy SectorPolicy, cfg Config, rng *rand.Rand, needsPosition func(id string) bool) {
	if len(nodes) == 0 {
		return
	}
	root := nodes[0]
	if needsPosition(root.ID) {
		root.X = meta.Anchor.X + jitter(rng, cfg)
		root.Y = meta.Anchor.Y + jitter(rng, cfg)
		root.VX, root.VY = 0, 0
	}
	center, width := policy.RootSector(meta)
	if width == 0 {
		width = cfg.ConeAngle
	}
	root.Angle = center

	// Radius growth is a base offset plus a per-depth increment, optionally
	// compressed so the deepest visible ring fits the tree's radial budget.
	maxDepth := 0
	for _, n := range nodes {
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
	}
	scale := 1.0
	if meta.TreeRadius > 0 && maxDepth > 0 {
		extent := cfg.RadiusBaseOffset + float64(maxDepth-1)*cfg.RadiusPerDepth
		if extent > meta.TreeRadius {
			scale = meta.TreeRadius / extent
		}
	}

	var placeChildren func(parent *Node)
	placeChildren = func(parent *Node) {
		children := childrenOf(parent.ID)
		if len(children) == 0 {
			return
		}

		var spreadCenter, spread float64
		full := false
		if parent.Depth == 0 {
			spreadCenter, spread = center, width
			full = policy.FullCircle()
		} else {
			spreadCenter = parent.Angle
			spread = policy.ChildSpread(parent.Depth, cfg)
		}

		step := cfg.RadiusPerDepth * scale
		if parent.Depth == 0 {
			step = cfg.RadiusBaseOffset * scale
		}

		for i, child := range children {
			child.Angle = siblingAngle(spreadCenter, spread, i, len(children), full)
			if needsPosition(child.ID) {
				child.X = parent.X + math.Cos(child.Angle)*step + jitter(rng, cfg)
				child.Y = parent.Y + math.Sin(child.Angle)*step + jitter(rng, cfg)
				child.VX, child.VY = 0, 0
			}
			placeChildren(child)
		}
	}
	placeChildren(root)
}

// siblingAngle spreads sibling i of n across the sector. Full circles wrap
// evenly; bounded sectors center the siblings inside the arc.
func siblingAngle(center, spread float64, i, n int, fullCircle bool) float64 {
	if n == 1 && !fullCircle {
		return center
	}
	if fullCircle {
		return center + spread*float64(i)/float64(n)
	}
	return center - spread/2 + spread*(float64(i)+0.5)/float64(n)
}

func jitter(rng *rand.Rand, cfg Config) float64 {
	if cfg.PlacementJitter <= 0 {
		return 0
	}
	return (rng.Float64() - 0.5) * cfg.PlacementJitter
}
