package render

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/layout"
)

func testFrame() layout.Frame {
	return layout.Frame{
		Mode:   layout.ModeTimeline,
		Width:  800,
		Height: 600,
		AxisY:  300,
		Ticks: []layout.AxisTick{
			{X: 100, Label: "Jan 01"},
			{X: 700, Label: "Dec 31"},
		},
		Nodes: []layout.FrameNode{
			{ID: "p1", X: 200, Y: 150, Radius: 26, Class: "project"},
			{ID: "p1-a1", X: 260, Y: 120, Radius: 22, Class: "article", Overdue: true},
			{ID: "broken", X: math.NaN(), Y: 100, Radius: 10, Class: "operation"},
		},
		Edges: []layout.FrameEdge{
			{SourceID: "p1", TargetID: "p1-a1"},
			{SourceID: "p1", TargetID: "broken"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"svg", FormatSVG, false},
		{"png", FormatPNG, false},
		{"dot", FormatDOT, false},
		{"json", FormatJSON, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				if errors.GetCode(err) != errors.ErrCodeInvalidFormat {
					t.Errorf("expected invalid-format error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, %v", tt.input, got, err)
			}
		})
	}
}

func TestSVGOutput(t *testing.T) {
	svg := string(SVG(testFrame(), DefaultOptions()))

	for _, want := range []string{
		`viewBox="0 0 800.0 600.0"`,
		`id="node-p1"`,
		`id="node-p1-a1"`,
		`stroke="` + overdueStroke + `"`, // overdue ring
		"Jan 01",                         // axis tick label
		"<line",                          // axis and edges
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(svg, "node-broken") {
		t.Error("non-finite node must not be drawn")
	}
	if count := strings.Count(svg, "<circle"); count != 2 {
		t.Errorf("expected 2 circles, got %d", count)
	}
}

func TestSVGRadialHasNoAxis(t *testing.T) {
	f := testFrame()
	f.Mode = layout.ModeRadial
	f.AxisY = 0
	f.Ticks = nil

	svg := string(SVG(f, DefaultOptions()))
	if strings.Contains(svg, "stroke-dasharray") {
		t.Error("radial frame must not draw a time axis")
	}
}

func TestSVGEscapes(t *testing.T) {
	f := layout.Frame{
		Width: 100, Height: 100,
		Nodes: []layout.FrameNode{{ID: `a<b>&"c`, X: 50, Y: 50, Radius: 5, Class: "operation"}},
	}
	svg := string(SVG(f, Options{}))
	if strings.Contains(svg, "<b>") {
		t.Error("node ids must be XML-escaped")
	}
}

func TestPNGOutput(t *testing.T) {
	data, err := PNG(testFrame(), DefaultOptions())
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable PNG: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("PNG dimensions = %dx%d, want 800x600", cfg.Width, cfg.Height)
	}
}

func TestPNGRejectsEmptyFrame(t *testing.T) {
	_, err := PNG(layout.Frame{}, Options{})
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("expected invalid-input error, got %v", err)
	}
}

func TestDOTOutput(t *testing.T) {
	dot := DOT(testFrame())

	for _, want := range []string{
		"graph planviz {",
		"layout=neato",
		`"p1" [pos="200.0,450.0!"`, // y flipped against height 600
		`"p1" -- "p1-a1";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q", want)
		}
	}
	if strings.Contains(dot, "broken") {
		t.Error("non-finite node and its edges must be skipped")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := JSON(testFrame())
	if err != nil {
		t.Fatal(err)
	}
	var f layout.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("frame JSON does not round-trip: %v", err)
	}
	if f.Mode != layout.ModeTimeline {
		t.Errorf("round-tripped frame lost mode: %+v", f)
	}
	if len(f.Nodes) != 2 || len(f.Edges) != 1 {
		t.Errorf("non-finite node and its edge should be dropped, got %d nodes %d edges", len(f.Nodes), len(f.Edges))
	}
}

func TestRenderDispatch(t *testing.T) {
	f := testFrame()
	for _, format := range []Format{FormatSVG, FormatPNG, FormatDOT, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			out, err := Render(f, format, DefaultOptions())
			if err != nil {
				t.Fatalf("Render(%s): %v", format, err)
			}
			if len(out) == 0 {
				t.Error("empty output")
			}
		})
	}

	if _, err := Render(f, Format("pdf"), Options{}); errors.GetCode(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("expected invalid-format error, got %v", err)
	}
}

func TestHexRGB(t *testing.T) {
	tests := []struct {
		hex     string
		r, g, b float64
	}{
		{"#ffffff", 1, 1, 1},
		{"#000000", 0, 0, 0},
		{"#ff0000", 1, 0, 0},
		{"bogus", 0, 0, 0},
	}
	for _, tt := range tests {
		r, g, b := hexRGB(tt.hex)
		if math.Abs(r-tt.r) > 0.01 || math.Abs(g-tt.g) > 0.01 || math.Abs(b-tt.b) > 0.01 {
			t.Errorf("hexRGB(%q) = %f,%f,%f", tt.hex, r, g, b)
		}
	}
}
