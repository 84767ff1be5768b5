package hierarchy

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyNodeID is returned by [Validate] when a node has an empty ID.
	// All nodes must have non-empty identifiers.
	ErrEmptyNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Validate] when two distinct nodes
	// carry the same ID. The engine keys its working set by ID, so a
	// collision would silently merge unrelated nodes.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrSharedChild is returned by [Validate] when the same node is
	// reachable through more than one parent. That covers both diamond
	// sharing and cycles; either way the data is a graph, not a forest.
	ErrSharedChild = errors.New("node has multiple parents")

	// ErrTooDeep is returned by [Validate] when nesting exceeds maxDepth.
	// A forest deeper than this is almost certainly malformed input, and
	// the depth guard keeps the traversal bounded on it.
	ErrTooDeep = errors.New("hierarchy exceeds maximum depth")
)

// maxDepth bounds validation recursion. Real production hierarchies are
// four or five levels deep; anything past this is malformed input.
const maxDepth = 64

// Validate checks that the forest satisfies the engine's structural
// precondition: non-empty unique IDs, no shared children, no cycles.
// It walks every tree once, building a seen set, and fails fast with a
// descriptive error naming the offending node. This is the only defensive
// boundary - the layout engine itself does not re-validate.
func Validate(f Forest) error {
	seen := make(map[string]*Node, 64)
	for _, root := range f.Roots {
		if err := validateNode(root, seen, 0); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n *Node, seen map[string]*Node, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w (depth %d at node %q)", ErrTooDeep, depth, n.ID)
	}
	if n.ID == "" {
		return ErrEmptyNodeID
	}
	if prev, ok := seen[n.ID]; ok {
		// The same node reached twice is sharing or a cycle; two distinct
		// nodes with one ID is a plain collision.
		if prev == n {
			return fmt.Errorf("%w: %q", ErrSharedChild, n.ID)
		}
		return fmt.Errorf("%w: %q", ErrDuplicateNodeID, n.ID)
	}
	seen[n.ID] = n

	for _, c := range n.Children {
		if err := validateNode(c, seen, depth+1); err != nil {
			return err
		}
	}
	return nil
}
