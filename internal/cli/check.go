package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsync/pkg/parser"
)

// newCheckCmd creates the check command, which parses flowchart files
// and reports syntax errors with line numbers. The exit status is
// non-zero when any file fails.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [files...]",
		Short: "Validate flowchart files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}

				m, err := parser.Parse(string(data))
				if err != nil {
					failed++
					printError("%s: %v", path, err)
					continue
				}

				logger.Debug("parsed", "file", path, "nodes", m.NodeCount(), "edges", m.EdgeCount())
				printSuccess("%s", path)
				printStats(m.NodeCount(), m.EdgeCount(), len(m.SubGraphs()))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}
