package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/layout"
)

// DOT serializes the frame as Graphviz source with every position pinned
// (neato "!" syntax), so downstream graph tooling reuses the solved layout
// instead of recomputing its own. Graphviz y grows upward; coordinates flip
// against the frame height.
func DOT(f layout.Frame) string {
	var buf bytes.Buffer
	buf.WriteString("graph planviz {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, fontsize=8];\n")
	buf.WriteString("\n")

	for _, n := range f.Nodes {
		if !drawable(n) {
			continue
		}
		style := styleFor(n.Class)
		color := style.stroke
		if n.Overdue {
			color = overdueStroke
		}
		// Graphviz sizes in inches at 72 dpi.
		fmt.Fprintf(&buf, "  %q [pos=\"%.1f,%.1f!\", width=%.3f, fillcolor=%q, color=%q, class=%q];\n",
			n.ID, n.X, f.Height-n.Y, n.Radius*2/72, style.fill, color, n.Class)
	}

	buf.WriteString("\n")
	index := nodeByID(f)
	for _, e := range f.Edges {
		src, okS := index[e.SourceID]
		tgt, okT := index[e.TargetID]
		if !okS || !okT || !drawable(src) || !drawable(tgt) {
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q;\n", e.SourceID, e.TargetID)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// DOTToSVG renders DOT source through the embedded Graphviz engine.
func DOTToSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render DOT")
	}
	return buf.Bytes(), nil
}
