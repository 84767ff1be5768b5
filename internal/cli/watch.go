package cli

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/planviz/planviz/pkg/hierarchy"
	"github.com/planviz/planviz/pkg/layout"
	"github.com/planviz/planviz/pkg/pipeline"
	"github.com/planviz/planviz/pkg/render"
)

// tickEvery is the simulation step interval for the watch TUI.
const tickEvery = 50 * time.Millisecond

// watchCommand creates the watch command for interactively exploring a plan.
func (c *CLI) watchCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "watch [plan.json]",
		Short: "Explore a plan layout interactively",
		Long: `Explore a plan layout interactively.

The watch command keeps the force solver running in the terminal. Visibility
levels can be toggled live, single trees expanded past the global depth limit,
and the layout reshuffled when it settles into an awkward shape. Snapshots of
the current frame can be written to SVG at any time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{Input: args[0], Logger: c.Logger}
			flags.apply(&opts)
			return c.runWatch(opts)
		},
	}

	flags.register(cmd)
	return cmd
}

// runWatch builds the engine and hands control to the bubbletea program.
func (c *CLI) runWatch(opts pipeline.Options) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	forest, err := hierarchy.ReadForestFile(opts.Input)
	if err != nil {
		return err
	}

	engine, err := layout.NewEngine(forest, *opts.Config, layout.Mode(opts.Mode), opts.Canvas())
	if err != nil {
		return err
	}
	engine.SetVisibility(opts.Visibility())

	model := newWatchModel(engine, forest, opts)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// tickMsg drives one simulation step.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// watchModel is the bubbletea model for the watch command.
type watchModel struct {
	engine *layout.Engine
	forest hierarchy.Forest
	names  map[string]string // root ID -> display name
	opts   pipeline.Options

	cursor   int
	paused   bool
	ticks    int
	status   string
	expanded map[string]bool

	canvasCols int
	canvasRows int
}

func newWatchModel(engine *layout.Engine, forest hierarchy.Forest, opts pipeline.Options) watchModel {
	names := make(map[string]string, len(forest.Roots))
	for _, root := range forest.Roots {
		names[root.ID] = root.DisplayName()
	}
	return watchModel{
		engine:     engine,
		forest:     forest,
		names:      names,
		opts:       opts,
		expanded:   make(map[string]bool),
		canvasCols: 64,
		canvasRows: 12,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tickCmd()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if !m.paused {
			m.engine.Step()
			m.ticks++
		}
		return m, tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "r":
			m.engine.Reorganize()
			m.status = "reorganizing"
		case "R":
			roots := m.engine.Roots()
			if m.cursor < len(roots) {
				if err := m.engine.ReorganizeTree(roots[m.cursor].RootID); err == nil {
					m.status = "reorganizing " + roots[m.cursor].RootID
				}
			}
		case "m":
			m = m.switchMode()
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.engine.Roots())-1 {
				m.cursor++
			}
		case "tab":
			if n := len(m.engine.Roots()); n > 0 {
				m.cursor = (m.cursor + 1) % n
			}
		case "enter":
			roots := m.engine.Roots()
			if m.cursor < len(roots) {
				id := roots[m.cursor].RootID
				if err := m.engine.ToggleRootExpansion(id); err == nil {
					m.expanded[id] = !m.expanded[id]
					m.status = "toggled " + id
				}
			}
		case "1":
			m = m.toggleVisibility(func(v *layout.Visibility) { v.ShowArticles = !v.ShowArticles })
		case "2":
			m = m.toggleVisibility(func(v *layout.Visibility) { v.ShowAssemblies = !v.ShowAssemblies })
		case "3":
			m = m.toggleVisibility(func(v *layout.Visibility) { v.ShowWorkPackages = !v.ShowWorkPackages })
		case "4":
			m = m.toggleVisibility(func(v *layout.Visibility) { v.ShowOperations = !v.ShowOperations })
		case "c", "h":
			m = m.toggleVisibility(func(v *layout.Visibility) { v.HideCompleted = !v.HideCompleted })
		case "s":
			m.status = m.snapshot()
		}

	case tea.WindowSizeMsg:
		m.canvasCols = msg.Width - 4
		if m.canvasCols < 20 {
			m.canvasCols = 20
		}
		m.canvasRows = msg.Height / 3
		if m.canvasRows < 6 {
			m.canvasRows = 6
		}
	}
	return m, nil
}

// switchMode rebuilds the engine in the other layout mode, keeping the
// visibility state. Expansion overrides reset; they are per-scene.
func (m watchModel) switchMode() watchModel {
	next := layout.ModeTimeline
	if m.opts.Mode == string(layout.ModeTimeline) {
		next = layout.ModeRadial
	}
	cfg := layout.DefaultConfig()
	if m.opts.Config != nil {
		cfg = *m.opts.Config
	}
	engine, err := layout.NewEngine(m.forest, cfg, next, m.opts.Canvas())
	if err != nil {
		m.status = "mode switch failed: " + err.Error()
		return m
	}
	engine.SetVisibility(m.engine.Visibility())
	m.engine = engine
	m.opts.Mode = string(next)
	m.expanded = make(map[string]bool)
	m.cursor = 0
	m.status = "switched to " + string(next)
	return m
}

// toggleVisibility applies f to the current visibility and pushes the result
// into the engine.
func (m watchModel) toggleVisibility(f func(*layout.Visibility)) watchModel {
	v := m.engine.Visibility()
	f(&v)
	m.engine.SetVisibility(v)
	m.status = "visibility changed"
	return m
}

// snapshot writes the current frame as SVG next to the input file.
func (m watchModel) snapshot() string {
	frame := m.engine.Frame()
	data := render.SVG(frame, m.opts.RenderOptions())
	base := strings.TrimSuffix(m.opts.Input, filepath.Ext(m.opts.Input))
	path := base + ".snapshot.svg"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "snapshot failed: " + err.Error()
	}
	return "wrote " + path
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("planviz watch"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("space pause  r/R reorganize  m mode  1-4 levels  c hide done  tab/⏎ cycle/expand  s snapshot  q quit"))
	b.WriteString("\n\n")

	frame := m.engine.Frame()
	vis := m.engine.Visibility()
	state := "running"
	if m.paused {
		state = "paused"
	}
	b.WriteString(fmt.Sprintf("  %s  alpha %.3f  %d nodes  %d edges  tick %d\n\n",
		StyleValue.Render(state), m.engine.Alpha(), len(frame.Nodes), len(frame.Edges), m.ticks))

	b.WriteString(brailleCanvas(frame, m.canvasCols, m.canvasRows))
	b.WriteString("\n")

	b.WriteString("  " + StyleDim.Render(visibilityLine(vis)) + "\n\n")

	rows := [][]string{}
	for i, meta := range m.engine.Roots() {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		mark := ""
		if m.expanded[meta.RootID] {
			mark = "expanded"
		}
		rows = append(rows, []string{
			cursor,
			m.names[meta.RootID],
			fmt.Sprintf("%d", meta.NodeCount),
			mark,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Project", "Nodes", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row == m.cursor {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString("\n  " + StyleDim.Render(m.status) + "\n")
	}
	return b.String()
}

// brailleDots maps a sub-cell (x 0..1, y 0..3) to its bit in a braille rune.
// Each terminal cell packs a 2x4 dot grid starting at U+2800.
var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// brailleCanvas draws the frame as a braille dot field, cols by rows terminal
// cells. Edges are stepped as dotted lines, nodes plotted on top, and the
// time axis drawn as a horizontal rule when the frame carries one.
func brailleCanvas(frame layout.Frame, cols, rows int) string {
	if cols < 1 || rows < 1 || frame.Width <= 0 || frame.Height <= 0 {
		return ""
	}

	grid := make([]rune, cols*rows)
	dotW := float64(cols * 2)
	dotH := float64(rows * 4)
	plot := func(x, y float64) {
		dx := int(x / frame.Width * dotW)
		dy := int(y / frame.Height * dotH)
		if dx < 0 || dy < 0 || dx >= cols*2 || dy >= rows*4 {
			return
		}
		grid[(dy/4)*cols+dx/2] |= brailleDots[dy%4][dx%2]
	}

	if frame.AxisY > 0 {
		for dx := 0; dx < cols*2; dx++ {
			plot(float64(dx)/dotW*frame.Width, frame.AxisY)
		}
	}

	pos := make(map[string]layout.FrameNode, len(frame.Nodes))
	for _, n := range frame.Nodes {
		pos[n.ID] = n
	}
	for _, e := range frame.Edges {
		src, ok := pos[e.SourceID]
		if !ok {
			continue
		}
		dst, ok := pos[e.TargetID]
		if !ok {
			continue
		}
		steps := int(math.Hypot(dst.X-src.X, dst.Y-src.Y) / frame.Width * dotW)
		for i := 1; i < steps; i += 2 {
			t := float64(i) / float64(steps)
			plot(src.X+(dst.X-src.X)*t, src.Y+(dst.Y-src.Y)*t)
		}
	}
	for _, n := range frame.Nodes {
		plot(n.X, n.Y)
		plot(n.X-n.Radius/2, n.Y)
		plot(n.X+n.Radius/2, n.Y)
	}

	var b strings.Builder
	for row := 0; row < rows; row++ {
		b.WriteString("  ")
		line := make([]rune, cols)
		for col := 0; col < cols; col++ {
			line[col] = 0x2800 + grid[row*cols+col]
		}
		b.WriteString(lipgloss.NewStyle().Foreground(colorCyan).Render(string(line)))
		b.WriteString("\n")
	}
	return b.String()
}

// visibilityLine formats the active visibility toggles for the status area.
func visibilityLine(v layout.Visibility) string {
	var parts []string
	add := func(on bool, label string) {
		if on {
			parts = append(parts, label)
		}
	}
	add(true, "projects")
	add(v.ShowArticles, "articles")
	add(v.ShowAssemblies, "assemblies")
	add(v.ShowWorkPackages, "work packages")
	add(v.ShowOperations, "operations")
	if v.HideCompleted {
		parts = append(parts, "completed hidden")
	}
	return strings.Join(parts, " · ")
}
