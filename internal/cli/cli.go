// Package cli implements the planviz command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/planviz/planviz/pkg/buildinfo"
	"github.com/planviz/planviz/pkg/cache"
	"github.com/planviz/planviz/pkg/pipeline"
	"github.com/planviz/planviz/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "planviz"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "planviz",
		Short:        "Planviz renders project hierarchies as force-directed diagrams",
		Long:         `Planviz is a CLI tool for visualizing production plans as node-link diagrams. Projects anchor to a time axis or a radial grid, and their articles, assemblies, work packages and operations settle into place around them.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/planviz/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// layoutFlags holds the command-line flags shared by layout, render and watch.
type layoutFlags struct {
	mode        string
	width       float64
	height      float64
	settleTicks int
	configPath  string

	articles      bool
	assemblies    bool
	workPackages  bool
	operations    bool
	hideCompleted bool
}

// register adds the shared layout flags to cmd.
func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", pipeline.DefaultMode, "layout mode: timeline (default), radial")
	cmd.Flags().Float64Var(&f.width, "width", pipeline.DefaultWidth, "canvas width")
	cmd.Flags().Float64Var(&f.height, "height", pipeline.DefaultHeight, "canvas height")
	cmd.Flags().IntVar(&f.settleTicks, "settle-ticks", pipeline.DefaultSettleTicks, "max solver ticks before the layout is frozen")
	cmd.Flags().StringVar(&f.configPath, "config", "", "layout config file (TOML)")
	cmd.Flags().BoolVar(&f.articles, "articles", true, "show article nodes")
	cmd.Flags().BoolVar(&f.assemblies, "assemblies", true, "show assembly nodes")
	cmd.Flags().BoolVar(&f.workPackages, "work-packages", false, "show work package nodes")
	cmd.Flags().BoolVar(&f.operations, "operations", false, "show operation nodes")
	cmd.Flags().BoolVar(&f.hideCompleted, "hide-completed", false, "hide completed branches")
}

// apply copies the flag values into pipeline options.
func (f *layoutFlags) apply(opts *pipeline.Options) {
	opts.Mode = f.mode
	opts.Width = f.width
	opts.Height = f.height
	opts.SettleTicks = f.settleTicks
	opts.ConfigPath = f.configPath
	opts.ShowArticles = f.articles
	opts.ShowAssemblies = f.assemblies
	opts.ShowWorkPackages = f.workPackages
	opts.ShowOperations = f.operations
	opts.HideCompleted = f.hideCompleted
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{string(render.FormatSVG)}
	}
	return strings.Split(s, ",")
}
