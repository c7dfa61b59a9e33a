package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsync/pkg/parser"
	"github.com/matzehuels/flowsync/pkg/store"
)

// newDraftCmd creates the draft command group for managing persisted
// drafts. A draft captures a flowchart's source text plus the manual
// node positions that are not part of the text itself.
func newDraftCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save, load, and delete persisted drafts",
	}
	cmd.AddCommand(newDraftSaveCmd(configPath))
	cmd.AddCommand(newDraftLoadCmd(configPath))
	cmd.AddCommand(newDraftDeleteCmd(configPath))
	return cmd
}

func newDraftSaveCmd(configPath *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save a flowchart file as a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := parser.Parse(string(data)); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			drafts, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer drafts.Close()

			draft := store.NewDraft(string(data), nil)
			draft.Name = name
			if err := store.SaveDraft(ctx, drafts, draft); err != nil {
				return err
			}

			printSuccess("Saved draft %s", draft.ID)
			printDetail("backend: %s", store.BackendName(drafts))
			printNextStep("Restore it with", "flowsync draft load "+draft.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "human-readable draft name")
	return cmd
}

func newDraftLoadCmd(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "load [id]",
		Short: "Load a draft and print or write its source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			drafts, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer drafts.Close()

			draft, err := store.LoadDraft(ctx, drafts, args[0])
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Print(draft.Code)
				return nil
			}
			if err := os.WriteFile(output, []byte(draft.Code), 0644); err != nil {
				return err
			}
			printSuccess("Loaded draft %s", draft.ID)
			if draft.Name != "" {
				printDetail("name: %s", draft.Name)
			}
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the draft source to a file instead of stdout")
	return cmd
}

func newDraftDeleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			drafts, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer drafts.Close()

			if err := store.DeleteDraft(ctx, drafts, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted draft %s", args[0])
			return nil
		},
	}
}
