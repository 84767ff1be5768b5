package layout

import "github.com/planviz/planviz/pkg/hierarchy"

// Metrics summarizes the shape of one full (unfiltered) tree. The lane
// assigner uses the estimated footprint to reserve space before the real
// solver has run. The estimates are heuristics: their only contract is
// monotonicity - more children or descendants never shrink an estimate.
type Metrics struct {
	// DescendantCount includes the root itself.
	DescendantCount int
	// MaxFanout is the widest sibling set at any depth. Breadth, not total
	// count, determines how wide a fully expanded radial sector must be.
	MaxFanout int
	// EstimatedWidth and EstimatedHeight approximate the fully expanded
	// footprint in canvas units.
	EstimatedWidth  float64
	EstimatedHeight float64
}

// Measure walks one tree once and produces its metrics.
func Measure(root *hierarchy.Node, cfg Config) Metrics {
	m := Metrics{}
	fanoutAt := map[int]int{}

	hierarchy.Walk(root, func(n *hierarchy.Node, depth int) {
		m.DescendantCount++
		fanoutAt[depth+1] += len(n.Children)
	})
	for _, fan := range fanoutAt {
		if fan > m.MaxFanout {
			m.MaxFanout = fan
		}
	}

	m.EstimatedWidth = cfg.EstimateBaseWidth
	if m.MaxFanout > 1 {
		m.EstimatedWidth += float64(m.MaxFanout-1) * cfg.EstimatePerChild
	}

	// Height saturates: depth, not breadth, dominates the vertical extent of
	// a radial tree, and unbounded growth would waste canvas.
	m.EstimatedHeight = cfg.EstimateBaseHeight + float64(m.DescendantCount)*cfg.EstimatePerNode
	if m.EstimatedHeight > cfg.EstimateMaxHeight {
		m.EstimatedHeight = cfg.EstimateMaxHeight
	}

	return m
}
