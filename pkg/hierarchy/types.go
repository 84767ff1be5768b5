package hierarchy

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeType is the closed set of hierarchy levels.
// Every node carries exactly one type; rendering and layout look up
// radius and color per type, so the set is deliberately exhaustive.
type NodeType int

const (
	// TypeProject is a root container grouping several articles.
	TypeProject NodeType = iota
	// TypeArticle is a sellable article, the usual tree root on the timeline.
	TypeArticle
	// TypeAssembly is an intermediate production assembly under an article.
	TypeAssembly
	// TypeWorkPackage groups operations and carries scheduling dates.
	TypeWorkPackage
	// TypeOperation is a leaf-level production operation.
	TypeOperation
)

// typeNames maps NodeType to its serialized form. The table is exhaustive:
// adding a NodeType without extending it breaks String, which tests catch.
var typeNames = map[NodeType]string{
	TypeProject:     "project",
	TypeArticle:     "article",
	TypeAssembly:    "assembly",
	TypeWorkPackage: "work_package",
	TypeOperation:   "operation",
}

// String returns the serialized name of the type.
func (t NodeType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// ParseNodeType converts a serialized type name back to a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown node type: %q", s)
}

// MarshalJSON serializes the type as its string name.
func (t NodeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON deserializes the type from its string name.
func (t *NodeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNodeType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Node is one vertex of a business hierarchy. The structure forms a forest:
// no cycles, and no node is owned by two parents. That invariant is checked
// once at the ingestion boundary by Validate; everything downstream assumes it.
//
// Nodes are immutable per render pass - the layout engine builds its own
// mutable working set and never writes back into the hierarchy.
type Node struct {
	ID              string   `json:"id"`
	Type            NodeType `json:"type"`
	Name            string   `json:"name,omitempty"`
	Identifier      string   `json:"identifier,omitempty"` // External identifier (article/order number)
	PlannedHours    float64  `json:"planned_hours,omitempty"`
	ActualHours     float64  `json:"actual_hours,omitempty"`
	CompletionRatio float64  `json:"completion_ratio,omitempty"` // 0..1
	Completed       bool     `json:"completed,omitempty"`
	Active          bool     `json:"active,omitempty"`

	// StartDate/EndDate carry work-package scheduling; DeliveryDate anchors a
	// root on the time axis. All optional, RFC 3339.
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`

	Children []*Node `json:"children,omitempty"`
}

// DisplayName returns the name if set, otherwise the identifier, otherwise the ID.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	if n.Identifier != "" {
		return n.Identifier
	}
	return n.ID
}

// Overdue reports whether the node's scheduled end has passed without completion.
// Nodes without an end date are never overdue.
func (n *Node) Overdue(now time.Time) bool {
	if n.Completed || n.EndDate == nil {
		return false
	}
	return n.EndDate.Before(now)
}

// Forest is an ordered set of independent hierarchy trees.
// Order is significant: lane assignment breaks anchor ties by input order.
type Forest struct {
	Roots []*Node `json:"roots"`
}

// Walk visits every node of the subtree rooted at n in pre-order
// (parent before children). The visit function receives the node and its
// depth relative to n (n itself has depth 0).
func Walk(n *Node, visit func(node *Node, depth int)) {
	walk(n, 0, visit)
}

func walk(n *Node, depth int, visit func(node *Node, depth int)) {
	visit(n, depth)
	for _, c := range n.Children {
		walk(c, depth+1, visit)
	}
}

// CountByType returns the number of nodes of each type across the forest.
func (f Forest) CountByType() map[NodeType]int {
	counts := make(map[NodeType]int)
	for _, root := range f.Roots {
		Walk(root, func(n *Node, _ int) {
			counts[n.Type]++
		})
	}
	return counts
}

// MaxPlannedByType returns the maximum planned hours per node type across
// the forest. The layout engine uses this to log-scale node radii relative
// to the largest same-type node.
func (f Forest) MaxPlannedByType() map[NodeType]float64 {
	max := make(map[NodeType]float64)
	for _, root := range f.Roots {
		Walk(root, func(n *Node, _ int) {
			if n.PlannedHours > max[n.Type] {
				max[n.Type] = n.PlannedHours
			}
		})
	}
	return max
}

// NodeCount returns the total number of nodes in the forest.
func (f Forest) NodeCount() int {
	count := 0
	for _, root := range f.Roots {
		Walk(root, func(*Node, int) { count++ })
	}
	return count
}
