package layout

// =============================================================================
// Bounding-Box Separation Forces
// =============================================================================
//
// Pairwise charge cannot keep whole trees apart: it is cut off at a maximum
// distance, and even without the cutoff two dense clusters interleave long
// before their centers repel. These forces compute axis-aligned bounding
// boxes per group each tick and push overlapping groups apart as rigid
// bodies.

// TreeSeparationForce pushes the bounding boxes of whole trees apart along
// the horizontal axis. Trees on opposite sides of the time axis never
// interact; the barrier already keeps them apart vertically, and a vertical
// push would only drive one of them into the clamp. The push is split
// between the two trees in inverse proportion to their node counts, so a
// small tree yields to a large one instead of both shifting equally.
//
// In radial mode every meta reports the same side, so all pairs are
// considered.
func TreeSeparationForce(cfg Config, metas map[string]*TreeMeta) Force {
	return func(nodes []*Node, alpha float64) {
		groups, order := collectGroups(nodes,
			func(n *Node) string { return n.RootID }, cfg.TreeSepMargin)

		for i, ka := range order {
			a := groups[ka]
			if !a.box.valid() {
				continue
			}
			for _, kb := range order[i+1:] {
				b := groups[kb]
				if !b.box.valid() {
					continue
				}
				ma, mb := metas[ka], metas[kb]
				if ma != nil && mb != nil && ma.AboveAxis != mb.AboveAxis {
					continue
				}
				dx, dy := a.box.overlap(b.box)
				if dx <= 0 || dy <= 0 {
					continue
				}
				ax := dx * cfg.TreeSepStrength * alpha
				if a.box.centerX() > b.box.centerX() {
					ax = -ax
				}
				wa, wb := massSplit(len(a.nodes), len(b.nodes))
				applyGroupPush(a.nodes, -ax*wa, 0)
				applyGroupPush(b.nodes, ax*wb, 0)
			}
		}
	}
}

// BranchSeparationForce keeps the depth-1 branch subtrees of one tree from
// braiding into each other. Unlike tree separation it pushes along whichever
// axis has the smaller overlap: within a tree a minimal corrective nudge in
// either direction beats always shoving sideways. Roots carry no branch id
// and are exempt; cross-tree pairs are skipped because tree separation
// already handles them.
func BranchSeparationForce(cfg Config) Force {
	return func(nodes []*Node, alpha float64) {
		groups, order := collectGroups(nodes, func(n *Node) string {
			if n.BranchID == "" {
				return ""
			}
			return n.RootID + "/" + n.BranchID
		}, cfg.BranchSepMargin)

		for i, ka := range order {
			a := groups[ka]
			if !a.box.valid() {
				continue
			}
			for _, kb := range order[i+1:] {
				b := groups[kb]
				if !b.box.valid() {
					continue
				}
				if a.nodes[0].RootID != b.nodes[0].RootID {
					continue
				}
				dx, dy := a.box.overlap(b.box)
				if dx <= 0 || dy <= 0 {
					continue
				}
				// Push along the axis of least overlap, directed by the
				// box centers so the pair moves apart, not together.
				push := cfg.BranchSepStrength * alpha
				var ax, ay float64
				if dx < dy {
					ax = dx * push
					if a.box.centerX() > b.box.centerX() {
						ax = -ax
					}
				} else {
					ay = dy * push
					if a.box.centerY() > b.box.centerY() {
						ay = -ay
					}
				}
				wa, wb := massSplit(len(a.nodes), len(b.nodes))
				applyGroupPush(a.nodes, -ax*wa, -ay*wa)
				applyGroupPush(b.nodes, ax*wb, ay*wb)
			}
		}
	}
}

type group struct {
	key   string
	box   box
	nodes []*Node
}

// collectGroups partitions the working set by key and computes each group's
// padded bounding box. Membership is rebuilt every call, so the forces stay
// correct across engine rebuilds without re-registration.
func collectGroups(nodes []*Node, keyOf func(*Node) string, margin float64) (map[string]*group, []string) {
	groups := make(map[string]*group)
	var order []string
	for _, n := range nodes {
		key := keyOf(n)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, box: emptyBox()}
			groups[key] = g
			order = append(order, key)
		}
		g.box.extend(n.X, n.Y, n.Radius, margin)
		g.nodes = append(g.nodes, n)
	}
	return groups, order
}

// massSplit divides a unit push between two groups inversely to their sizes.
func massSplit(na, nb int) (wa, wb float64) {
	if na <= 0 {
		na = 1
	}
	if nb <= 0 {
		nb = 1
	}
	inv := 1.0/float64(na) + 1.0/float64(nb)
	return (1.0 / float64(na)) / inv, (1.0 / float64(nb)) / inv
}

func applyGroupPush(nodes []*Node, vx, vy float64) {
	for _, n := range nodes {
		if n.Pinned() {
			continue
		}
		n.VX += vx
		n.VY += vy
	}
}
