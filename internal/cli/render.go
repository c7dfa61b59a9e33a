package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsync/pkg/layout"
	"github.com/matzehuels/flowsync/pkg/parser"
)

const (
	formatSVG = "svg"
	formatDOT = "dot"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output string // output file path; derived from input when empty
	format string // output format: "svg" or "dot"
}

// newRenderCmd creates the render command for generating diagram images.
// The flowchart text is parsed, laid out with Graphviz, and written as
// SVG (default) or as the intermediate DOT source.
func newRenderCmd() *cobra.Command {
	opts := renderOpts{format: formatSVG}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a flowchart file to SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatSVG && opts.format != formatDOT {
				return fmt.Errorf("invalid format: %s (must be 'svg' or 'dot')", opts.format)
			}
			return runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with new extension)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), dot")
	return cmd
}

func runRender(ctx context.Context, path string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := parser.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + "." + opts.format
	}

	var rendered []byte
	switch opts.format {
	case formatDOT:
		rendered = []byte(layout.ToDOT(m))
	default:
		spin := startSpinner(ctx, "rendering diagram")
		rendered, err = layout.RenderSVG(ctx, m)
		spin.Stop()
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(output, rendered, 0644); err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Rendered %s", path))
	printFile(output)
	printStats(m.NodeCount(), m.EdgeCount(), len(m.SubGraphs()))
	return nil
}
