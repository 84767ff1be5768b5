package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/planviz/planviz/pkg/cache"
	"github.com/planviz/planviz/pkg/hierarchy"
	"github.com/planviz/planviz/pkg/pipeline"
)

// layoutCommand creates the layout command for computing node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		flags   layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [plan.json]",
		Short: "Compute node positions for a plan hierarchy",
		Long: `Compute node positions for a plan hierarchy.

The layout command takes a plan.json file describing the project forest and
runs the force solver until the layout settles. The output is a frame.json
file holding the drawable nodes, edges and axis ticks, which can be rendered
to SVG/PNG/DOT with the 'render' command.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{Input: args[0], Logger: c.Logger}
			flags.apply(&opts)
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.frame.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.register(cmd)

	return cmd
}

// runLayout computes the layout and writes the frame to disk.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	forest, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}
	forestData, err := hierarchy.MarshalForest(forest)
	if err != nil {
		return fmt.Errorf("hash forest: %w", err)
	}
	forestHash := cache.Hash(forestData)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", opts.Mode))
	spinner.Start()

	frame, _, cacheHit, err := runner.ComputeLayoutWithCacheInfo(ctx, forest, forestHash, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(opts.Input, filepath.Ext(opts.Input))
		outputPath = base + ".frame.json"
	}

	data, err := json.MarshalIndent(frame, "", "  ")
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(forest.NodeCount(), len(frame.Nodes), len(frame.Edges), cacheHit)
	printNewline()
	printNextStep("Render", "planviz render "+opts.Input)

	return nil
}
