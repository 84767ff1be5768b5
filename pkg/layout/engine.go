package layout

import (
	"math"
	"math/rand"
	"time"

	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/hierarchy"
	"github.com/planviz/planviz/pkg/observability"
)

// =============================================================================
// Visibility
// =============================================================================

// Visibility controls which hierarchy levels are part of the working set.
// The toggles gate sequentially: a deeper level only shows if every level
// above it is also shown, because an assembly floating without its article
// is meaningless. With all toggles off only the roots remain.
type Visibility struct {
	ShowArticles     bool
	ShowAssemblies   bool
	ShowWorkPackages bool
	ShowOperations   bool
	// HideCompleted prunes completed non-root subtrees from the view.
	HideCompleted bool
}

// DefaultVisibility is the initial view: projects with their articles and
// assemblies, no work-package detail.
func DefaultVisibility() Visibility {
	return Visibility{ShowArticles: true, ShowAssemblies: true}
}

// depthLimit resolves the toggles into a maximum visible depth.
func (v Visibility) depthLimit() int {
	if !v.ShowArticles {
		return 0
	}
	if !v.ShowAssemblies {
		return 1
	}
	if !v.ShowWorkPackages {
		return 2
	}
	if !v.ShowOperations {
		return 3
	}
	return maxVisibleDepth
}

// maxVisibleDepth caps expansion; matches the hierarchy validation guard.
const maxVisibleDepth = 64

// =============================================================================
// Engine
// =============================================================================

// Engine owns the live layout of one forest: the visible working set, the
// force simulation over it, per-tree anchoring, and the interaction state
// (visibility, per-tree expansion, pins, reorganize). It is not safe for
// concurrent use; callers drive it from a single goroutine, typically a
// frame loop, and read frames between steps.
type Engine struct {
	cfg    Config
	mode   Mode
	canvas Canvas
	forest hierarchy.Forest

	// now is fixed at construction so overdue highlighting is stable for
	// the lifetime of a scene.
	now time.Time

	hierarchyByID map[string]*hierarchy.Node
	maxPlanned    map[hierarchy.NodeType]float64

	metas      []*TreeMeta
	metaByRoot map[string]*TreeMeta
	// anchorDate remembers each root's axis date so anchors can be
	// re-projected after a canvas resize.
	anchorDate map[string]time.Time
	scale      TimeScale
	assigner   Assigner
	policy     SectorPolicy

	vis           Visibility
	expandedRoots map[string]bool
	pins          map[string]Point

	nodes []*Node
	index map[string]*Node
	edges []Edge

	sim   *Simulation
	rng   *rand.Rand
	reorg *reorganizeScript
}

// NewEngine validates the inputs, assigns every tree a lane and anchor, and
// builds the initial working set under the default visibility. The
// simulation starts hot (alpha = AlphaInitial) so the first settle pass does
// the real untangling.
func NewEngine(forest hierarchy.Forest, cfg Config, mode Mode, canvas Canvas) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !ValidModes[mode] {
		return nil, errors.New(errors.ErrCodeInvalidMode, "unknown layout mode %q", mode)
	}
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "canvas must have positive dimensions, got %.0fx%.0f", canvas.Width, canvas.Height)
	}
	if err := hierarchy.Validate(forest); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidForest, err, "invalid forest")
	}

	e := &Engine{
		cfg:           cfg,
		mode:          mode,
		canvas:        canvas,
		forest:        forest,
		now:           time.Now(),
		hierarchyByID: make(map[string]*hierarchy.Node, forest.NodeCount()),
		maxPlanned:    forest.MaxPlannedByType(),
		metaByRoot:    make(map[string]*TreeMeta, len(forest.Roots)),
		anchorDate:    make(map[string]time.Time),
		vis:           DefaultVisibility(),
		expandedRoots: make(map[string]bool),
		pins:          make(map[string]Point),
		rng:           rand.New(rand.NewSource(int64(cfg.Seed))),
	}
	for _, root := range forest.Roots {
		hierarchy.Walk(root, func(n *hierarchy.Node, _ int) {
			e.hierarchyByID[n.ID] = n
		})
	}

	switch mode {
	case ModeTimeline:
		e.assigner = TimelineAssigner{}
		e.policy = ConeSectors{}
	default:
		e.assigner = GridAssigner{}
		e.policy = RadialSectors{}
	}

	e.buildMetas()
	e.sim = NewSimulation(nil, cfg)
	e.registerForces()
	e.rebuild()
	e.sim.SetAlpha(cfg.AlphaInitial)
	return e, nil
}

// buildMetas measures every tree, projects timeline anchors, and runs the
// lane assigner. Meta pointers are stable afterward; Assign mutates them in
// place, so forces holding metaByRoot see anchor updates without
// re-registration.
func (e *Engine) buildMetas() {
	e.metas = e.metas[:0]
	for _, root := range e.forest.Roots {
		m := Measure(root, e.cfg)
		meta := &TreeMeta{
			RootID:    root.ID,
			Footprint: Size{W: m.EstimatedWidth, H: m.EstimatedHeight},
			NodeCount: m.DescendantCount,
		}
		if d, ok := rootAxisDate(root); ok {
			e.anchorDate[root.ID] = d
		}
		e.metas = append(e.metas, meta)
		e.metaByRoot[root.ID] = meta
	}
	e.projectAnchors()
	e.assigner.Assign(e.metas, e.canvas)
}

// projectAnchors recomputes the time scale and every meta's AnchorX.
// Radial mode has no axis; anchors come entirely from the grid assigner.
func (e *Engine) projectAnchors() {
	if e.mode != ModeTimeline {
		return
	}
	var start, end time.Time
	for _, d := range e.anchorDate {
		if start.IsZero() || d.Before(start) {
			start = d
		}
		if end.IsZero() || d.After(end) {
			end = d
		}
	}
	e.scale = NewTimeScale(start, end, e.canvas)
	for _, meta := range e.metas {
		if d, ok := e.anchorDate[meta.RootID]; ok {
			meta.AnchorX = e.scale.X(d)
		} else {
			meta.AnchorX = (e.scale.MinX + e.scale.MaxX) / 2
		}
	}
}

// rootAxisDate picks the date that anchors a tree on the time axis.
func rootAxisDate(root *hierarchy.Node) (time.Time, bool) {
	switch {
	case root.DeliveryDate != nil:
		return *root.DeliveryDate, true
	case root.EndDate != nil:
		return *root.EndDate, true
	case root.StartDate != nil:
		return *root.StartDate, true
	}
	return time.Time{}, false
}

// registerForces wires the solver pipeline. Registration order is execution
// order: spring and repulsion accumulate velocities, collision resolves
// positions, the box separations keep groups apart, the anchor pulls roots
// home, and in timeline mode the barrier clamps last so nothing can undo it.
func (e *Engine) registerForces() {
	e.sim.SetForce("link", LinkForce(nil, e.cfg))
	e.sim.SetForce("charge", ChargeForce(e.cfg))
	e.sim.SetForce("collide", CollideForce(e.cfg))
	e.sim.SetForce("treesep", TreeSeparationForce(e.cfg, e.metaByRoot))
	e.sim.SetForce("branchsep", BranchSeparationForce(e.cfg))
	e.sim.SetForce("anchor", AnchorForce(e.metaByRoot, e.cfg))
	if e.mode == ModeTimeline {
		e.sim.SetForce("barrier", BarrierForce(e.metaByRoot, e.canvas.AxisY(), e.cfg))
	}
}

// =============================================================================
// Working Set Construction
// =============================================================================

// rebuild reconstructs the visible node and edge sets from the hierarchy
// under the current visibility state. Surviving nodes keep their position
// and velocity; new nodes are placed from their parent's live position so an
// expand animates outward from where the parent actually is right now.
func (e *Engine) rebuild() {
	// A running reorganize gesture holds pointers into the old working set;
	// a visibility change cancels it rather than animating stale nodes.
	e.reorg = nil

	carried := e.index
	e.nodes = e.nodes[:0]
	e.edges = e.edges[:0]
	e.index = make(map[string]*Node, len(e.hierarchyByID))

	bounds := make([]int, 0, len(e.forest.Roots)+1)
	for _, root := range e.forest.Roots {
		bounds = append(bounds, len(e.nodes))
		e.collectVisible(root, "", "", root.ID, 0)
	}
	bounds = append(bounds, len(e.nodes))

	// Carried positions must be restored before placement runs: new nodes
	// are placed off their parent's live position, which for a surviving
	// parent is the carried one.
	for _, n := range e.nodes {
		if prev, ok := carried[n.ID]; ok {
			n.X, n.Y = prev.X, prev.Y
			n.VX, n.VY = prev.VX, prev.VY
			n.Angle = prev.Angle
		}
		if p, ok := e.pins[n.ID]; ok {
			x, y := p.X, p.Y
			n.FX, n.FY = &x, &y
			n.X, n.Y = x, y
		}
	}

	for i, root := range e.forest.Roots {
		tree := e.nodes[bounds[i]:bounds[i+1]]
		if meta := e.metaByRoot[root.ID]; meta != nil && len(tree) > 0 {
			meta.NodeCount = len(tree)
			e.placeTree(tree, meta, carried)
		}
	}

	e.sim.SetNodes(e.nodes)
	e.sim.SetForce("link", LinkForce(e.edges, e.cfg))
	observability.Engine().OnRebuild(len(e.nodes), len(e.edges))
}

// collectVisible appends the visible subtree of h in pre-order.
func (e *Engine) collectVisible(h *hierarchy.Node, parentID, branchID, rootID string, depth int) {
	if depth > 0 && e.vis.HideCompleted && h.Completed {
		return
	}
	limit := e.vis.depthLimit()
	if e.expandedRoots[rootID] {
		limit = maxVisibleDepth
	}
	if depth > limit {
		return
	}

	class := classFor(h.Type)
	n := &Node{
		ID:        h.ID,
		Class:     class,
		RootID:    rootID,
		ParentID:  parentID,
		BranchID:  branchID,
		Depth:     depth,
		Radius:    e.radiusOf(h, class),
		Overdue:   h.Overdue(e.now),
		Completed: h.Completed,
	}
	e.nodes = append(e.nodes, n)
	e.index[h.ID] = n
	if parentID != "" {
		e.edges = append(e.edges, Edge{
			SourceID: parentID,
			TargetID: h.ID,
			Leaf:     class == ClassOperation,
		})
	}

	childBranch := branchID
	if depth == 0 {
		childBranch = "" // filled per child below
	}
	for _, c := range h.Children {
		if depth == 0 {
			childBranch = c.ID
		}
		e.collectVisible(c, h.ID, childBranch, rootID, depth+1)
	}
}

// radiusOf resolves a node's visual radius. With metric scaling on, radii
// log-scale by planned hours against the largest same-type node, bounded to
// [0.7, 1.3] of the base so no node disappears or dominates.
func (e *Engine) radiusOf(h *hierarchy.Node, class TypeClass) float64 {
	base := e.cfg.radiusFor(class)
	if !e.cfg.MetricScaling || h.PlannedHours <= 0 {
		return base
	}
	max := e.maxPlanned[h.Type]
	if max <= 0 {
		return base
	}
	frac := math.Log1p(h.PlannedHours) / math.Log1p(max)
	return base * (0.7 + 0.6*frac)
}

// placeTree runs initial placement for one tree's working set, positioning
// only nodes that were not carried over from the previous set.
func (e *Engine) placeTree(tree []*Node, meta *TreeMeta, carried map[string]*Node) {
	if len(tree) == 0 {
		return
	}
	children := make(map[string][]*Node, len(tree))
	for _, n := range tree {
		if n.ParentID != "" {
			children[n.ParentID] = append(children[n.ParentID], n)
		}
	}
	Place(tree,
		func(id string) []*Node { return children[id] },
		meta, e.policy, e.cfg, e.rng,
		func(id string) bool { _, ok := carried[id]; return !ok },
	)
}

// =============================================================================
// Interaction
// =============================================================================

// SetVisibility swaps the visibility state, rebuilds the working set, and
// moderately reheats the solver so the layout absorbs the change without a
// full restart.
func (e *Engine) SetVisibility(v Visibility) {
	if v == e.vis {
		return
	}
	e.vis = v
	e.rebuild()
	e.reheat()
}

// Visibility returns the current visibility state.
func (e *Engine) Visibility() Visibility { return e.vis }

// ToggleRootExpansion expands or collapses a single tree to full depth,
// independent of the global toggles.
func (e *Engine) ToggleRootExpansion(rootID string) error {
	if _, ok := e.metaByRoot[rootID]; !ok {
		return errors.New(errors.ErrCodeNotFound, "unknown tree root %q", rootID)
	}
	if e.expandedRoots[rootID] {
		delete(e.expandedRoots, rootID)
	} else {
		e.expandedRoots[rootID] = true
	}
	e.rebuild()
	e.reheat()
	return nil
}

// Pin fixes a node at the given canvas position, as during a drag gesture.
// The pin survives rebuilds until Unpin is called.
func (e *Engine) Pin(id string, x, y float64) error {
	n, ok := e.index[id]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "unknown node %q", id)
	}
	e.pins[id] = Point{X: x, Y: y}
	px, py := x, y
	n.FX, n.FY = &px, &py
	e.reheat()
	return nil
}

// Unpin releases a pinned node back to the solver. Unknown ids are ignored;
// a release for a node that collapsed away mid-drag is not an error.
func (e *Engine) Unpin(id string) {
	delete(e.pins, id)
	if n, ok := e.index[id]; ok {
		n.FX, n.FY = nil, nil
	}
}

// reorganizeScript is phase 1 of the reorganize gesture: a fixed-length
// eased-out interpolation that drives positions directly, bypassing the
// solver. Held roots stay pinned through phase 2 as well, until the solver
// has cooled back down.
type reorganizeScript struct {
	ticksLeft int
	total     int
	moves     []scriptedMove
	held      []*Node
}

type scriptedMove struct {
	node         *Node
	fromX, fromY float64
	toX, toY     float64
}

// Reorganize shakes the whole canvas out: every non-root node is scripted
// outward to ReorganizeScale times its offset from its tree root over
// ReorganizeTicks steps, eased out, then the solver takes over at
// ReorganizeAlpha and pulls the expanded trees back into a natural resting
// shape.
func (e *Engine) Reorganize() {
	e.startReorganize(func(string) bool { return true }, false)
}

// ReorganizeTree runs the gesture on a single tree. The roots of every other
// tree are held at their current position for the whole gesture, expansion
// and resettling both, so shaking one tree out never walks its neighbors
// across the canvas.
func (e *Engine) ReorganizeTree(rootID string) error {
	if _, ok := e.metaByRoot[rootID]; !ok {
		return errors.New(errors.ErrCodeNotFound, "unknown root %q", rootID)
	}
	e.startReorganize(func(id string) bool { return id == rootID }, true)
	return nil
}

func (e *Engine) startReorganize(affected func(rootID string) bool, holdOthers bool) {
	e.releaseHeld()
	script := &reorganizeScript{
		ticksLeft: e.cfg.ReorganizeTicks,
		total:     e.cfg.ReorganizeTicks,
	}

	rootPos := make(map[string]Point, len(e.metas))
	for _, n := range e.nodes {
		if n.Depth == 0 {
			rootPos[n.RootID] = Point{X: n.X, Y: n.Y}
		}
	}
	for _, n := range e.nodes {
		if n.Depth == 0 {
			if holdOthers && !affected(n.RootID) && !n.Pinned() {
				x, y := n.X, n.Y
				n.FX, n.FY = &x, &y
				script.held = append(script.held, n)
			}
			continue
		}
		if !affected(n.RootID) || n.Pinned() {
			continue
		}
		root, ok := rootPos[n.RootID]
		if !ok {
			continue
		}
		script.moves = append(script.moves, scriptedMove{
			node:  n,
			fromX: n.X,
			fromY: n.Y,
			toX:   root.X + (n.X-root.X)*e.cfg.ReorganizeScale,
			toY:   root.Y + (n.Y-root.Y)*e.cfg.ReorganizeScale,
		})
	}

	e.reorg = script
	observability.Engine().OnReorganize()
}

// releaseHeld unpins the roots held by a single-tree reorganize and retires
// the script. User pins placed through Pin stay.
func (e *Engine) releaseHeld() {
	if e.reorg == nil {
		return
	}
	for _, n := range e.reorg.held {
		if _, pinned := e.pins[n.ID]; !pinned {
			n.FX, n.FY = nil, nil
		}
	}
	e.reorg = nil
}

// RefreshAnchors re-reads the roots' anchor dates from the hierarchy and
// re-projects the time scale and lanes. Callers that adjust delivery dates on
// the forest they own call this instead of constructing a new engine.
func (e *Engine) RefreshAnchors() {
	for id := range e.anchorDate {
		delete(e.anchorDate, id)
	}
	for _, root := range e.forest.Roots {
		if d, ok := rootAxisDate(root); ok {
			e.anchorDate[root.ID] = d
		}
	}
	e.projectAnchors()
	e.assigner.Assign(e.metas, e.canvas)
	e.reheat()
}

// Resize re-projects anchors and lanes onto a new canvas and reheats so the
// layout flows to the new geometry instead of jumping.
func (e *Engine) Resize(canvas Canvas) error {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "canvas must have positive dimensions, got %.0fx%.0f", canvas.Width, canvas.Height)
	}
	e.canvas = canvas
	e.projectAnchors()
	e.assigner.Assign(e.metas, e.canvas)
	if e.mode == ModeTimeline {
		// The barrier captured the old axis position; re-register it.
		e.sim.SetForce("barrier", BarrierForce(e.metaByRoot, e.canvas.AxisY(), e.cfg))
	}
	e.reheat()
	return nil
}

func (e *Engine) reheat() {
	if e.sim.Alpha() < e.cfg.AlphaRestart {
		e.sim.SetAlpha(e.cfg.AlphaRestart)
	}
}

// =============================================================================
// Stepping and Output
// =============================================================================

// Step advances the layout one tick. While a reorganize phase 1 is running
// the script owns the positions and the solver does not tick; afterwards the
// solver runs normally, and any roots held by a single-tree gesture are
// released once it has cooled back below the restart level.
func (e *Engine) Step() {
	if r := e.reorg; r != nil && r.ticksLeft > 0 {
		r.ticksLeft--
		p := float64(r.total-r.ticksLeft) / float64(r.total)
		ease := 1 - (1-p)*(1-p)
		for _, mv := range r.moves {
			mv.node.X = mv.fromX + (mv.toX-mv.fromX)*ease
			mv.node.Y = mv.fromY + (mv.toY-mv.fromY)*ease
			mv.node.VX, mv.node.VY = 0, 0
		}
		if r.ticksLeft == 0 {
			// Phase 2: hand the expanded layout to the solver, hot.
			e.sim.SetAlpha(e.cfg.ReorganizeAlpha)
			if len(r.held) == 0 {
				e.reorg = nil
			}
		}
		return
	}

	e.sim.Tick()
	if e.reorg != nil && e.sim.Alpha() <= e.cfg.AlphaRestart {
		e.releaseHeld()
	}
}

// Alpha exposes the solver's cooling value, mainly for progress display.
func (e *Engine) Alpha() float64 { return e.sim.Alpha() }

// Settle runs the solver to convergence for batch rendering, capped at
// maxTicks. The ambient alpha floor is lowered to zero for the duration so
// the simulation can actually freeze, then restored. Returns the number of
// ticks run.
func (e *Engine) Settle(maxTicks int) int {
	e.sim.SetAlphaTarget(0)
	ticks := 0
	for ticks < maxTicks && !e.sim.Settled() {
		e.Step()
		ticks++
	}
	e.sim.SetAlphaTarget(e.cfg.AlphaAmbient)
	observability.Engine().OnSettle(ticks, e.sim.Alpha())
	return ticks
}

// Frame snapshots the current layout into the render contract. The frame is
// self-contained; adapters need nothing else from the engine.
func (e *Engine) Frame() Frame {
	f := Frame{
		Mode:   e.mode,
		Width:  e.canvas.Width,
		Height: e.canvas.Height,
		Nodes:  make([]FrameNode, 0, len(e.nodes)),
		Edges:  make([]FrameEdge, 0, len(e.edges)),
	}
	if e.mode == ModeTimeline {
		f.AxisY = e.canvas.AxisY()
		f.Ticks = e.scale.Ticks(6)
	}
	for _, n := range e.nodes {
		f.Nodes = append(f.Nodes, FrameNode{
			ID:      n.ID,
			X:       n.X,
			Y:       n.Y,
			Radius:  n.Radius,
			Class:   n.Class.String(),
			Overdue: n.Overdue,
		})
	}
	for _, ed := range e.edges {
		f.Edges = append(f.Edges, FrameEdge{SourceID: ed.SourceID, TargetID: ed.TargetID})
	}
	return f
}

// NodeAt returns the topmost node whose circle contains the point, or nil.
// Iteration is back to front so later-drawn nodes win the hit test.
func (e *Engine) NodeAt(x, y float64) *Node {
	for i := len(e.nodes) - 1; i >= 0; i-- {
		n := e.nodes[i]
		if math.Hypot(x-n.X, y-n.Y) <= n.Radius {
			return n
		}
	}
	return nil
}

// Roots returns the tree metas in forest order, for UI listings.
func (e *Engine) Roots() []*TreeMeta { return e.metas }
