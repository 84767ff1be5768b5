package render

import (
	"bytes"
	"fmt"

	"github.com/planviz/planviz/pkg/layout"
)

// SVG assembles the frame into standalone SVG markup. Edges draw first so
// circles sit on top; nodes keep their frame order, which the engine emits
// tree by tree in pre-order, so parents paint under their children.
func SVG(f layout.Frame, opts Options) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		f.Width, f.Height, f.Width, f.Height)

	if opts.Background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill=%q/>`+"\n", opts.Background)
	}

	renderAxis(&buf, f)
	renderEdges(&buf, f, opts)
	renderNodes(&buf, f)

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderAxis(buf *bytes.Buffer, f layout.Frame) {
	if f.Mode != layout.ModeTimeline {
		return
	}
	fmt.Fprintf(buf, `  <line x1="0" y1="%.1f" x2="%.1f" y2="%.1f" stroke=%q stroke-width="1" stroke-dasharray="6,4"/>`+"\n",
		f.AxisY, f.Width, f.AxisY, axisColor)
	for _, tick := range f.Ticks {
		fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke=%q stroke-width="1"/>`+"\n",
			tick.X, f.AxisY-5, tick.X, f.AxisY+5, axisColor)
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" font-size="11" font-family="sans-serif" fill=%q text-anchor="middle">%s</text>`+"\n",
			tick.X, f.AxisY+20, axisColor, escapeXML(tick.Label))
	}
}

func renderEdges(buf *bytes.Buffer, f layout.Frame, opts Options) {
	index := nodeByID(f)
	fmt.Fprintf(buf, `  <g stroke=%q stroke-opacity="%.2f" stroke-width="1.2">`+"\n", edgeColor, opts.edgeOpacity())
	for _, e := range f.Edges {
		src, okS := index[e.SourceID]
		tgt, okT := index[e.TargetID]
		if !okS || !okT || !drawable(src) || !drawable(tgt) {
			continue
		}
		fmt.Fprintf(buf, `    <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", src.X, src.Y, tgt.X, tgt.Y)
	}
	buf.WriteString("  </g>\n")
}

func renderNodes(buf *bytes.Buffer, f layout.Frame) {
	for _, n := range f.Nodes {
		if !drawable(n) {
			continue
		}
		style := styleFor(n.Class)
		stroke, width := style.stroke, 1.0
		if n.Overdue {
			stroke, width = overdueStroke, 2.5
		}
		fmt.Fprintf(buf, `  <circle id=%q cx="%.1f" cy="%.1f" r="%.1f" fill=%q stroke=%q stroke-width="%.1f"><title>%s</title></circle>`+"\n",
			"node-"+escapeXML(n.ID), n.X, n.Y, n.Radius, style.fill, stroke, width, escapeXML(n.ID))
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		case '"':
			buf.WriteString("&quot;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
