package render

// =============================================================================
// Palette
// =============================================================================

// classStyle maps a type class to its fill and stroke. The palette darkens
// with depth so the hierarchy reads at a glance even without labels.
type classStyle struct {
	fill   string
	stroke string
}

var classStyles = map[string]classStyle{
	"project":      {fill: "#1f4e79", stroke: "#16385a"},
	"article":      {fill: "#2e75b6", stroke: "#1f4e79"},
	"assembly":     {fill: "#5b9bd5", stroke: "#2e75b6"},
	"work_package": {fill: "#9dc3e6", stroke: "#5b9bd5"},
	"operation":    {fill: "#deebf7", stroke: "#9dc3e6"},
}

// overdueStroke rings nodes whose scheduled end has passed.
const overdueStroke = "#c00000"

// axisColor styles the timeline axis and its tick labels.
const axisColor = "#888888"

// edgeColor is the link stroke; opacity comes from Options.
const edgeColor = "#666666"

func styleFor(class string) classStyle {
	if s, ok := classStyles[class]; ok {
		return s
	}
	return classStyle{fill: "#cccccc", stroke: "#999999"}
}

// hexRGB converts a #rrggbb string to 0..1 channels for gg.
func hexRGB(hex string) (r, g, b float64) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0
	}
	parse := func(s string) float64 {
		v := 0
		for _, c := range s {
			v *= 16
			switch {
			case c >= '0' && c <= '9':
				v += int(c - '0')
			case c >= 'a' && c <= 'f':
				v += int(c-'a') + 10
			case c >= 'A' && c <= 'F':
				v += int(c-'A') + 10
			}
		}
		return float64(v) / 255
	}
	return parse(hex[1:3]), parse(hex[3:5]), parse(hex[5:7])
}
