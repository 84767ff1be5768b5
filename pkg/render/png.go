package render

import (
	"bytes"

	"github.com/fogleman/gg"

	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/layout"
)

// PNG rasterizes the frame. Reports cannot embed transparency reliably, so
// an unset background defaults to white here, unlike the SVG adapter.
func PNG(f layout.Frame, opts Options) ([]byte, error) {
	w, h := int(f.Width), int(f.Height)
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "frame has non-positive dimensions %dx%d", w, h)
	}
	ctx := gg.NewContext(w, h)

	bg := opts.Background
	if bg == "" {
		bg = "#ffffff"
	}
	ctx.SetRGB(hexRGB(bg))
	ctx.Clear()

	drawAxisPNG(ctx, f)
	drawEdgesPNG(ctx, f, opts)
	drawNodesPNG(ctx, f)

	var buf bytes.Buffer
	if err := ctx.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

func drawAxisPNG(ctx *gg.Context, f layout.Frame) {
	if f.Mode != layout.ModeTimeline {
		return
	}
	r, g, b := hexRGB(axisColor)
	ctx.SetRGB(r, g, b)
	ctx.SetLineWidth(1)
	ctx.SetDash(6, 4)
	ctx.DrawLine(0, f.AxisY, f.Width, f.AxisY)
	ctx.Stroke()
	ctx.SetDash()

	for _, tick := range f.Ticks {
		ctx.DrawLine(tick.X, f.AxisY-5, tick.X, f.AxisY+5)
		ctx.Stroke()
		ctx.DrawStringAnchored(tick.Label, tick.X, f.AxisY+16, 0.5, 0.5)
	}
}

func drawEdgesPNG(ctx *gg.Context, f layout.Frame, opts Options) {
	index := nodeByID(f)
	r, g, b := hexRGB(edgeColor)
	ctx.SetRGBA(r, g, b, opts.edgeOpacity())
	ctx.SetLineWidth(1.2)
	for _, e := range f.Edges {
		src, okS := index[e.SourceID]
		tgt, okT := index[e.TargetID]
		if !okS || !okT || !drawable(src) || !drawable(tgt) {
			continue
		}
		ctx.DrawLine(src.X, src.Y, tgt.X, tgt.Y)
		ctx.Stroke()
	}
}

func drawNodesPNG(ctx *gg.Context, f layout.Frame) {
	for _, n := range f.Nodes {
		if !drawable(n) {
			continue
		}
		style := styleFor(n.Class)
		ctx.SetRGB(hexRGB(style.fill))
		ctx.DrawCircle(n.X, n.Y, n.Radius)
		ctx.FillPreserve()

		stroke, width := style.stroke, 1.0
		if n.Overdue {
			stroke, width = overdueStroke, 2.5
		}
		ctx.SetRGB(hexRGB(stroke))
		ctx.SetLineWidth(width)
		ctx.Stroke()
	}
}
