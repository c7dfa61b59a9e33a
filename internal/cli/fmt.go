package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsync/pkg/parser"
	"github.com/matzehuels/flowsync/pkg/serializer"
)

// fmtOpts holds the command-line flags for the fmt command.
type fmtOpts struct {
	write bool // rewrite files in place instead of printing
}

// newFmtCmd creates the fmt command, which rewrites flowchart files in
// canonical form: one statement per line, normalized indentation,
// minimal node syntax and canonical edge operators. Formatting is
// idempotent; running fmt twice produces identical output.
func newFmtCmd() *cobra.Command {
	var opts fmtOpts

	cmd := &cobra.Command{
		Use:   "fmt [files...]",
		Short: "Rewrite flowchart files in canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(args, &opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "write result to source file instead of stdout")
	return cmd
}

func runFmt(paths []string, opts *fmtOpts) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		m, err := parser.Parse(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		canonical := serializer.Serialize(m)

		if opts.write {
			if canonical == string(data) {
				continue
			}
			if err := os.WriteFile(path, []byte(canonical), 0644); err != nil {
				return err
			}
			printFile(path)
			continue
		}
		fmt.Print(canonical)
	}
	return nil
}
