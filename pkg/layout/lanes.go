package layout

import (
	"math"
	"sort"
	"time"
)

// =============================================================================
// Assigner - Pluggable Slot/Lane Strategy
// =============================================================================

// Assigner resolves the anchor point of every tree on the canvas. The two
// strategies (timeline lanes, radial grid cells) are pluggable so one engine
// serves both visual surfaces.
//
// Assign mutates the metas in place and must be deterministic: identical
// ordered input always produces identical assignments. Implementations must
// never iterate a map to decide ordering.
type Assigner interface {
	Assign(metas []*TreeMeta, canvas Canvas)
}

// =============================================================================
// TimelineAssigner
// =============================================================================

// TimelineAssigner places each tree on a horizontal time axis at its
// projected delivery date, alternating sides so neighboring trees do not
// stack on the same half of the canvas.
//
// The assigner does not displace anchors horizontally: two trees with the
// same delivery date keep the same anchor, and the runtime bounding-box
// separation pushes them apart once real sizes are known. Pre-computing
// non-overlapping slots for variable-size subtrees is strictly harder than
// letting the solver resolve it.
type TimelineAssigner struct{}

// Assign sorts the trees by anchor position (stable, so ties keep input
// order), alternates them above and below the axis, and counts a lane index
// per side.
func (TimelineAssigner) Assign(metas []*TreeMeta, canvas Canvas) {
	order := make([]*TreeMeta, len(metas))
	copy(order, metas)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].AnchorX < order[j].AnchorX
	})

	axisY := canvas.AxisY()
	lanesAbove, lanesBelow := 0, 0
	for i, m := range order {
		m.AboveAxis = i%2 == 0
		if m.AboveAxis {
			m.LaneIndex = lanesAbove
			lanesAbove++
		} else {
			m.LaneIndex = lanesBelow
			lanesBelow++
		}

		// The anchor sits off the axis by half the estimated footprint so
		// the initial cone has room to open before the barrier clamps it.
		offset := math.Min(m.Footprint.H/2+40, canvas.Height/2-20)
		y := axisY - offset
		if !m.AboveAxis {
			y = axisY + offset
		}
		m.Anchor = Point{X: m.AnchorX, Y: y}
		m.TreeRadius = m.Footprint.W / 2
	}
}

// =============================================================================
// GridAssigner
// =============================================================================

// GridAssigner distributes N independent trees over a near-square grid of
// cells, one tree per cell, anchored at the cell center.
type GridAssigner struct{}

// Assign computes cols = ceil(sqrt(N)), rows = ceil(N/cols), and places
// tree i in cell (i mod cols, i div cols), in input order.
func (GridAssigner) Assign(metas []*TreeMeta, canvas Canvas) {
	n := len(metas)
	if n == 0 {
		return
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols

	cellW := canvas.Width / float64(cols)
	cellH := canvas.Height / float64(rows)

	for i, m := range metas {
		col := i % cols
		row := i / cols
		m.LaneIndex = i
		m.AboveAxis = false
		m.Anchor = Point{
			X: (float64(col) + 0.5) * cellW,
			Y: (float64(row) + 0.5) * cellH,
		}
		m.TreeRadius = math.Min(cellW, cellH) / 3
	}
}

// =============================================================================
// Time Scale
// =============================================================================

// TimeScale projects delivery dates linearly onto the canvas x range.
type TimeScale struct {
	Start   time.Time
	End     time.Time
	MinX    float64
	MaxX    float64
	nowSpan float64
}

// NewTimeScale builds a scale over [start, end] mapped to the horizontal
// margin-inset canvas range. A degenerate range (end before or equal to
// start) maps everything to the center.
func NewTimeScale(start, end time.Time, canvas Canvas) TimeScale {
	const margin = 80.0
	return TimeScale{
		Start:   start,
		End:     end,
		MinX:    margin,
		MaxX:    math.Max(margin, canvas.Width-margin),
		nowSpan: end.Sub(start).Seconds(),
	}
}

// X projects a date onto the axis. Dates outside the range clamp to the ends.
func (s TimeScale) X(t time.Time) float64 {
	if s.nowSpan <= 0 {
		return (s.MinX + s.MaxX) / 2
	}
	frac := t.Sub(s.Start).Seconds() / s.nowSpan
	frac = math.Max(0, math.Min(1, frac))
	return s.MinX + frac*(s.MaxX-s.MinX)
}

// Ticks returns up to count evenly spaced labeled axis positions.
func (s TimeScale) Ticks(count int) []AxisTick {
	if count < 2 || s.nowSpan <= 0 {
		return nil
	}
	ticks := make([]AxisTick, 0, count)
	step := s.nowSpan / float64(count-1)
	for i := 0; i < count; i++ {
		t := s.Start.Add(time.Duration(float64(i) * step * float64(time.Second)))
		ticks = append(ticks, AxisTick{X: s.X(t), Label: t.Format("Jan 02")})
	}
	return ticks
}
