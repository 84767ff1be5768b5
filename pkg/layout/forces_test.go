package layout

import (
	"math"
	"testing"
)

func makeNodes(coords ...float64) []*Node {
	nodes := make([]*Node, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		nodes = append(nodes, &Node{
			ID:     itoa(i / 2),
			X:      coords[i],
			Y:      coords[i+1],
			Radius: 10,
		})
	}
	return nodes
}

func TestSimulationForceOrderAndReplacement(t *testing.T) {
	sim := NewSimulation(makeNodes(0, 0), DefaultConfig())

	var order []string
	record := func(name string) Force {
		return func([]*Node, float64) { order = append(order, name) }
	}
	sim.SetForce("a", record("a"))
	sim.SetForce("b", record("b"))
	sim.SetForce("c", record("c"))
	sim.Tick()
	if len(order) != 3 || order[0] != "a" || order[2] != "c" {
		t.Fatalf("expected registration order a,b,c, got %v", order)
	}

	// Replacing keeps the slot, removing drops it.
	order = nil
	sim.SetForce("b", record("b2"))
	sim.SetForce("a", nil)
	sim.Tick()
	if len(order) != 2 || order[0] != "b2" || order[1] != "c" {
		t.Fatalf("expected b2,c after replace and remove, got %v", order)
	}
}

func TestSimulationAlphaDecaysToTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AlphaAmbient = 0
	sim := NewSimulation(makeNodes(0, 0), cfg)

	prev := sim.Alpha()
	for i := 0; i < 500 && !sim.Settled(); i++ {
		sim.Tick()
		if sim.Alpha() > prev {
			t.Fatalf("alpha increased from %f to %f at tick %d", prev, sim.Alpha(), i)
		}
		prev = sim.Alpha()
	}
	if !sim.Settled() {
		t.Fatalf("simulation never settled, alpha stuck at %f", sim.Alpha())
	}
}

func TestSimulationAmbientFloorKeepsRunning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AlphaAmbient = 0.05
	sim := NewSimulation(makeNodes(0, 0), cfg)

	for i := 0; i < 1000; i++ {
		sim.Tick()
	}
	if sim.Settled() {
		t.Fatal("simulation with an ambient floor must not settle")
	}
	if math.Abs(sim.Alpha()-0.05) > 0.01 {
		t.Errorf("alpha should hover near the ambient floor, got %f", sim.Alpha())
	}
}

func TestSimulationPinWins(t *testing.T) {
	cfg := DefaultConfig()
	nodes := makeNodes(100, 100)
	fx, fy := 100.0, 100.0
	nodes[0].FX, nodes[0].FY = &fx, &fy

	sim := NewSimulation(nodes, cfg)
	sim.SetForce("shove", func(ns []*Node, _ float64) {
		for _, n := range ns {
			n.VX += 50
			n.VY += 50
		}
	})
	for i := 0; i < 20; i++ {
		sim.Tick()
	}
	if nodes[0].X != 100 || nodes[0].Y != 100 {
		t.Errorf("pinned node moved to (%f, %f)", nodes[0].X, nodes[0].Y)
	}
}

func TestSimulationRepairsNonFinite(t *testing.T) {
	sim := NewSimulation(makeNodes(0, 0), DefaultConfig())
	sim.SetForce("poison", func(ns []*Node, _ float64) {
		ns[0].VX = math.NaN()
	})
	sim.Tick()
	if !finite(sim.Nodes()[0].X) || !finite(sim.Nodes()[0].Y) {
		t.Errorf("non-finite position leaked: (%f, %f)", sim.Nodes()[0].X, sim.Nodes()[0].Y)
	}
}

func TestLinkForcePullsTowardRestLength(t *testing.T) {
	cfg := DefaultConfig()
	nodes := makeNodes(0, 0, 500, 0)
	edges := []Edge{{SourceID: nodes[0].ID, TargetID: nodes[1].ID}}

	sim := NewSimulation(nodes, cfg)
	sim.SetForce("link", LinkForce(edges, cfg))
	for i := 0; i < 300; i++ {
		sim.Tick()
	}

	dist := math.Hypot(nodes[1].X-nodes[0].X, nodes[1].Y-nodes[0].Y)
	if math.Abs(dist-cfg.LinkDistance) > cfg.LinkDistance*0.5 {
		t.Errorf("link should converge near rest length %f, got distance %f", cfg.LinkDistance, dist)
	}
}

func TestChargeForceRepels(t *testing.T) {
	cfg := DefaultConfig()
	nodes := makeNodes(0, 0, 10, 0)
	before := nodes[1].X - nodes[0].X

	sim := NewSimulation(nodes, cfg)
	sim.SetForce("charge", ChargeForce(cfg))
	for i := 0; i < 50; i++ {
		sim.Tick()
	}
	after := nodes[1].X - nodes[0].X
	if after <= before {
		t.Errorf("charge should push nodes apart, gap went %f -> %f", before, after)
	}
}

func TestChargeForceCutoff(t *testing.T) {
	cfg := DefaultConfig()
	nodes := makeNodes(0, 0, cfg.ChargeMaxDist+100, 0)

	ChargeForce(cfg)(nodes, 1.0)
	if nodes[0].VX != 0 || nodes[1].VX != 0 {
		t.Error("nodes beyond the cutoff distance must not interact")
	}
}

func TestCollideForceResolvesOverlap(t *testing.T) {
	cfg := DefaultConfig()
	nodes := makeNodes(0, 0, 5, 0)

	for i := 0; i < 50; i++ {
		CollideForce(cfg)(nodes, 1.0)
	}
	dist := math.Hypot(nodes[1].X-nodes[0].X, nodes[1].Y-nodes[0].Y)
	minDist := nodes[0].Radius + nodes[1].Radius + cfg.CollidePadding
	if dist < minDist-1e-6 {
		t.Errorf("overlap not resolved: distance %f < %f", dist, minDist)
	}
}

func TestBarrierForceClampsSides(t *testing.T) {
	cfg := DefaultConfig()
	axisY := 450.0
	metas := map[string]*TreeMeta{
		"up":   {RootID: "up", AboveAxis: true},
		"down": {RootID: "down", AboveAxis: false},
	}
	nodes := []*Node{
		{ID: "a", RootID: "up", Radius: 10, Y: 600, VY: 50},
		{ID: "b", RootID: "down", Radius: 10, Y: 200, VY: -50},
	}

	BarrierForce(metas, axisY, cfg)(nodes, 1.0)
	if limit := axisY - cfg.BarrierMargin - 10; nodes[0].Y > limit {
		t.Errorf("above-axis node at %f crossed limit %f", nodes[0].Y, limit)
	}
	if limit := axisY + cfg.BarrierMargin + 10; nodes[1].Y < limit {
		t.Errorf("below-axis node at %f crossed limit %f", nodes[1].Y, limit)
	}
	if nodes[0].VY != 0 || nodes[1].VY != 0 {
		t.Error("barrier must zero the crossing velocity component")
	}
}

func TestAnchorForcePullsRootsOnly(t *testing.T) {
	cfg := DefaultConfig()
	metas := map[string]*TreeMeta{
		"r": {RootID: "r", Anchor: Point{X: 500, Y: 300}},
	}
	root := &Node{ID: "r", RootID: "r", Depth: 0, X: 0, Y: 0}
	child := &Node{ID: "c", RootID: "r", Depth: 1, X: 0, Y: 0}

	AnchorForce(metas, cfg)([]*Node{root, child}, 1.0)
	if root.VX <= 0 || root.VY <= 0 {
		t.Error("root should be pulled toward its anchor")
	}
	if child.VX != 0 || child.VY != 0 {
		t.Error("non-root nodes must not feel the anchor")
	}
}

func TestTreeSeparationPushesApart(t *testing.T) {
	cfg := DefaultConfig()
	force := TreeSeparationForce(cfg, map[string]*TreeMeta{})

	// Two trees fully overlapping at the origin.
	nodes := []*Node{
		{ID: "a1", RootID: "a", X: 0, Y: 0, Radius: 20},
		{ID: "a2", RootID: "a", X: 10, Y: 0, Radius: 20},
		{ID: "b1", RootID: "b", X: 5, Y: 0, Radius: 20},
	}
	force(nodes, 1.0)

	if nodes[0].VX == 0 && nodes[0].VY == 0 {
		t.Fatal("overlapping trees must receive a separation push")
	}
	// Both members of tree a move together as a rigid body.
	if nodes[0].VX != nodes[1].VX || nodes[0].VY != nodes[1].VY {
		t.Error("tree members must receive identical pushes")
	}
	// Opposite directions.
	if nodes[0].VX*nodes[2].VX > 0 && nodes[0].VY*nodes[2].VY > 0 {
		t.Error("the two trees must be pushed in opposite directions")
	}
}

func TestTreeSeparationMassSplit(t *testing.T) {
	cfg := DefaultConfig()
	force := TreeSeparationForce(cfg, map[string]*TreeMeta{})

	// Tree "big" has 5 nodes, tree "small" has 1; both boxes overlap.
	var nodes []*Node
	for i := 0; i < 5; i++ {
		nodes = append(nodes, &Node{ID: itoa(i), RootID: "big", X: float64(i) * 5, Y: 0, Radius: 15})
	}
	small := &Node{ID: "s", RootID: "small", X: 10, Y: 0, Radius: 15}
	nodes = append(nodes, small)

	force(nodes, 1.0)
	bigPush := math.Hypot(nodes[0].VX, nodes[0].VY)
	smallPush := math.Hypot(small.VX, small.VY)
	if smallPush <= bigPush {
		t.Errorf("smaller tree should move further: small %f vs big %f", smallPush, bigPush)
	}
}

func TestMassSplit(t *testing.T) {
	tests := []struct {
		name   string
		na, nb int
	}{
		{"equal", 10, 10},
		{"skewed", 1, 99},
		{"zero_guard", 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wa, wb := massSplit(tt.na, tt.nb)
			if math.Abs(wa+wb-1) > 1e-9 {
				t.Errorf("weights must sum to 1, got %f + %f", wa, wb)
			}
			if tt.na > tt.nb && wa > wb {
				t.Errorf("larger group must get the smaller weight: %f > %f", wa, wb)
			}
		})
	}
}

func TestBranchSeparationSkipsRoots(t *testing.T) {
	cfg := DefaultConfig()
	force := BranchSeparationForce(cfg)

	// Two branches of one tree overlapping, plus the root with no branch.
	nodes := []*Node{
		{ID: "r", RootID: "r", BranchID: "", X: 0, Y: 0, Radius: 20},
		{ID: "b1", RootID: "r", BranchID: "b1", Depth: 1, X: 0, Y: 30, Radius: 20},
		{ID: "b2", RootID: "r", BranchID: "b2", Depth: 1, X: 5, Y: 30, Radius: 20},
	}
	force(nodes, 1.0)
	if nodes[0].VX != 0 || nodes[0].VY != 0 {
		t.Error("root must not participate in branch separation")
	}
	if nodes[1].VX == 0 && nodes[1].VY == 0 {
		t.Error("overlapping branches must be pushed apart")
	}
}

func TestTreeSeparationSkipsOppositeSides(t *testing.T) {
	cfg := DefaultConfig()
	metas := map[string]*TreeMeta{
		"up":   {RootID: "up", AboveAxis: true},
		"down": {RootID: "down", AboveAxis: false},
	}
	force := TreeSeparationForce(cfg, metas)

	// The margin-padded boxes meet across the axis, but the barrier already
	// keeps the trees apart vertically.
	nodes := []*Node{
		{ID: "u", RootID: "up", X: 0, Y: -30, Radius: 20},
		{ID: "d", RootID: "down", X: 0, Y: 30, Radius: 20},
	}
	force(nodes, 1.0)
	for _, n := range nodes {
		if n.VX != 0 || n.VY != 0 {
			t.Errorf("trees on opposite sides must not interact, %s got (%f, %f)", n.ID, n.VX, n.VY)
		}
	}
}

func TestTreeSeparationPushesHorizontally(t *testing.T) {
	cfg := DefaultConfig()
	force := TreeSeparationForce(cfg, map[string]*TreeMeta{})

	// The vertical overlap is the smaller one here; the push must still go
	// along x.
	nodes := []*Node{
		{ID: "a", RootID: "a", X: 0, Y: 0, Radius: 40},
		{ID: "b", RootID: "b", X: 10, Y: 70, Radius: 40},
	}
	force(nodes, 1.0)
	if nodes[0].VY != 0 || nodes[1].VY != 0 {
		t.Error("tree separation must never push vertically")
	}
	if nodes[0].VX >= 0 || nodes[1].VX <= 0 {
		t.Errorf("boxes must come apart along x, got VX a=%f b=%f", nodes[0].VX, nodes[1].VX)
	}
}
