package layout

import (
	"math"
	"sort"
)

// =============================================================================
// Simulation - Composable Force Solver
// =============================================================================

// Force adjusts node velocities (or, for hard constraints, positions) for one
// tick. alpha is the current cooling value; forces scale their effect by it
// so the layout converges instead of oscillating forever.
type Force func(nodes []*Node, alpha float64)

// Simulation owns the node working set and an ordered list of named forces.
// Order matters: accumulation forces run first and the hard-constraint
// barrier runs last so nothing can push a node across the axis after it has
// been clamped. Replacing a force by name keeps its slot in the order.
type Simulation struct {
	nodes []*Node
	names []string
	force map[string]Force

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64
}

// NewSimulation builds an empty solver over the given working set using the
// cooling schedule from cfg. Forces are registered with SetForce.
func NewSimulation(nodes []*Node, cfg Config) *Simulation {
	return &Simulation{
		nodes:         nodes,
		force:         make(map[string]Force),
		alpha:         cfg.AlphaInitial,
		alphaMin:      cfg.AlphaMin,
		alphaDecay:    cfg.AlphaDecay,
		alphaTarget:   cfg.AlphaAmbient,
		velocityDecay: cfg.VelocityDecay,
	}
}

// SetForce registers or replaces a force under a stable name. A nil force
// removes the entry. New names append to the execution order.
func (s *Simulation) SetForce(name string, f Force) {
	if f == nil {
		if _, ok := s.force[name]; ok {
			delete(s.force, name)
			for i, n := range s.names {
				if n == name {
					s.names = append(s.names[:i], s.names[i+1:]...)
					break
				}
			}
		}
		return
	}
	if _, ok := s.force[name]; !ok {
		s.names = append(s.names, name)
	}
	s.force[name] = f
}

// Nodes exposes the working set, for forces that need to rebuild per-tick
// indexes and for the engine's frame extraction.
func (s *Simulation) Nodes() []*Node { return s.nodes }

// SetNodes swaps the working set after a rebuild. Forces capture node slices
// lazily per tick, so no re-registration is needed.
func (s *Simulation) SetNodes(nodes []*Node) { s.nodes = nodes }

// Alpha returns the current cooling value.
func (s *Simulation) Alpha() float64 { return s.alpha }

// SetAlpha reheats (or cools) the simulation, clamped to [0, 1].
func (s *Simulation) SetAlpha(a float64) {
	s.alpha = math.Min(1, math.Max(0, a))
}

// SetAlphaTarget sets the ambient floor alpha decays toward. A target above
// alphaMin keeps the layout gently breathing instead of freezing.
func (s *Simulation) SetAlphaTarget(t float64) { s.alphaTarget = t }

// Settled reports whether the simulation has cooled past its minimum and a
// Tick would be a no-op.
func (s *Simulation) Settled() bool {
	return s.alpha < s.alphaMin && s.alphaTarget < s.alphaMin
}

// Tick runs one solver step: cool alpha toward the target, apply every force
// in registration order, then integrate velocities into positions with
// velocity decay. Pinned coordinates are restored afterward so a pin wins
// over every force. Non-finite results are repaired with a small random kick
// rather than propagated.
func (s *Simulation) Tick() {
	if s.Settled() {
		return
	}
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay

	for _, name := range s.names {
		s.force[name](s.nodes, s.alpha)
	}

	for _, n := range s.nodes {
		n.VX *= s.velocityDecay
		n.VY *= s.velocityDecay
		n.X += n.VX
		n.Y += n.VY
		if n.FX != nil {
			n.X = *n.FX
			n.VX = 0
		}
		if n.FY != nil {
			n.Y = *n.FY
			n.VY = 0
		}
		if !finite(n.X) || !finite(n.Y) {
			n.X = float64(len(n.ID)%7) - 3
			n.Y = float64(len(n.ID)%5) - 2
			n.VX, n.VY = 0, 0
		}
	}
}

// =============================================================================
// Standard Forces
// =============================================================================

// LinkForce pulls every edge toward its rest length. Displacement is split
// between the endpoints by degree so hubs move less than their leaves,
// which keeps fanned-out operation clusters from dragging their parent
// around. Operation-level edges use the shorter rest length.
func LinkForce(edges []Edge, cfg Config) Force {
	return func(nodes []*Node, alpha float64) {
		index := make(map[string]*Node, len(nodes))
		degree := make(map[string]int, len(nodes))
		for _, n := range nodes {
			index[n.ID] = n
		}
		for _, e := range edges {
			if index[e.SourceID] == nil || index[e.TargetID] == nil {
				continue
			}
			degree[e.SourceID]++
			degree[e.TargetID]++
		}
		for _, e := range edges {
			src, tgt := index[e.SourceID], index[e.TargetID]
			if src == nil || tgt == nil {
				continue
			}
			rest := cfg.LinkDistance
			if e.Leaf {
				rest = cfg.LinkDistanceOp
			}
			dx := tgt.X + tgt.VX - src.X - src.VX
			dy := tgt.Y + tgt.VY - src.Y - src.VY
			dist := math.Hypot(dx, dy)
			if dist == 0 {
				dx, dist = 1e-6, 1e-6
			}
			pull := (dist - rest) / dist * alpha * cfg.LinkStrength
			ds, dt := degree[e.SourceID], degree[e.TargetID]
			bias := float64(ds) / float64(ds+dt)
			tgt.VX -= dx * pull * bias
			tgt.VY -= dy * pull * bias
			src.VX += dx * pull * (1 - bias)
			src.VY += dy * pull * (1 - bias)
		}
	}
}

// ChargeForce applies pairwise repulsion, cut off beyond a maximum distance
// so distant trees do not push on each other (tree separation handles that
// at the box level). Leaf-class nodes carry a weaker charge; a strong
// charge on hundreds of operations would blow their cluster apart.
func ChargeForce(cfg Config) Force {
	maxDistSq := cfg.ChargeMaxDist * cfg.ChargeMaxDist
	return func(nodes []*Node, alpha float64) {
		for i, a := range nodes {
			for _, b := range nodes[i+1:] {
				dx := b.X - a.X
				dy := b.Y - a.Y
				distSq := dx*dx + dy*dy
				if distSq > maxDistSq {
					continue
				}
				if distSq < 1e-6 {
					dx, dy = 1e-3, 1e-3
					distSq = 2e-6
				}
				strength := cfg.ChargeBranch
				if a.Class == ClassOperation || b.Class == ClassOperation {
					strength = cfg.ChargeLeaf
				}
				push := strength * alpha / distSq
				b.VX += dx * push
				b.VY += dy * push
				a.VX -= dx * push
				a.VY -= dy * push
			}
		}
	}
}

// CollideForce resolves pairwise circle overlap using node radii plus a
// padding. It operates on positions directly, like a constraint, because the
// overlap must be gone this tick, not some ticks later. A sweep over
// x-sorted nodes keeps the pair count down.
func CollideForce(cfg Config) Force {
	return func(nodes []*Node, alpha float64) {
		sorted := make([]*Node, len(nodes))
		copy(sorted, nodes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

		maxR := 0.0
		for _, n := range sorted {
			if n.Radius > maxR {
				maxR = n.Radius
			}
		}
		reach := 2*maxR + 2*cfg.CollidePadding

		for i, a := range sorted {
			for _, b := range sorted[i+1:] {
				if b.X-a.X > reach {
					break
				}
				minDist := a.Radius + b.Radius + cfg.CollidePadding
				dx := b.X - a.X
				dy := b.Y - a.Y
				dist := math.Hypot(dx, dy)
				if dist >= minDist {
					continue
				}
				if dist == 0 {
					dx, dist = 1e-6, 1e-6
				}
				overlap := (minDist - dist) / dist * 0.5
				if !a.Pinned() {
					a.X -= dx * overlap
					a.Y -= dy * overlap
				}
				if !b.Pinned() {
					b.X += dx * overlap
					b.Y += dy * overlap
				}
			}
		}
	}
}

// AnchorForce pulls each tree root toward its assigned anchor point.
// Non-root nodes are untouched; they follow their root through the links.
func AnchorForce(metas map[string]*TreeMeta, cfg Config) Force {
	return func(nodes []*Node, alpha float64) {
		for _, n := range nodes {
			if n.Depth != 0 {
				continue
			}
			meta := metas[n.RootID]
			if meta == nil {
				continue
			}
			n.VX += (meta.Anchor.X - n.X) * cfg.AnchorStrength * alpha
			n.VY += (meta.Anchor.Y - n.Y) * cfg.AnchorStrength * alpha
		}
	}
}

// BarrierForce hard-clamps every node to its tree's side of the time axis,
// keeping a margin. It must run last: it rewrites positions and zeroes the
// crossing velocity component, and no later force may undo that. Radial
// layouts have no axis and register no barrier.
func BarrierForce(metas map[string]*TreeMeta, axisY float64, cfg Config) Force {
	return func(nodes []*Node, _ float64) {
		for _, n := range nodes {
			meta := metas[n.RootID]
			if meta == nil {
				continue
			}
			if meta.AboveAxis {
				limit := axisY - cfg.BarrierMargin - n.Radius
				if n.Y+n.VY > limit {
					n.Y = limit
					n.VY = 0
				}
			} else {
				limit := axisY + cfg.BarrierMargin + n.Radius
				if n.Y+n.VY < limit {
					n.Y = limit
					n.VY = 0
				}
			}
		}
	}
}
