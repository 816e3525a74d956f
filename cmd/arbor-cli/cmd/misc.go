package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arbor/internal/application/commands"
)

var selectAllCmd = &cobra.Command{
	Use:   "select-all [parent-id]",
	Short: "Print the IDs of every child of a node",
	Long: `Ask the authority for every child of a node (default: your home node)
and print the IDs that can be selected, one per line.

Example:
  arbor-cli select-all 1f0c6e2a | xargs arbor-cli delete --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if err := a.Enter(ctx, args[0]); err != nil {
				return err
			}
		}
		result, err := commands.NewSelectAllCommand(a.Workspace).Execute(ctx)
		if err != nil {
			return err
		}
		for _, id := range a.Workspace.Selection.IDs() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		logger.Info(result.Message, "skipped", result.Skipped)
		return nil
	},
}

var insertBookCmd = &cobra.Command{
	Use:   "insert-book <id> <book-name>",
	Short: "Insert a sample book under a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if err := a.Focus(ctx, args[0]); err != nil {
			return err
		}
		bookCmd := commands.NewInsertBookCommand(a.Workspace, args[1])
		if err := bookCmd.Validate(); err != nil {
			return err
		}
		if !confirmCmd(cmd, "", bookCmd.Prompt()) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
		result, err := bookCmd.Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

var saveClipboardCmd = &cobra.Command{
	Use:   "save-clipboard",
	Short: "Save the system clipboard as a new note",
	Long: `Save the text on the system clipboard as the newest node of your
notes node.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		result, err := commands.NewSaveClipboardCommand(a.Workspace, a.Clipboard).Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selectAllCmd)
	rootCmd.AddCommand(insertBookCmd)
	rootCmd.AddCommand(saveClipboardCmd)
}
