package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arbor/internal/app"
	"arbor/internal/application"
	"arbor/internal/application/commands"
)

var hardDelete bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete nodes",
	Long: `Delete one or more sibling nodes.

Nodes are moved to the trash bin. Nodes already in the trash, or any node
with --hard, are deleted permanently together with their subtree.

Examples:
  arbor-cli delete 1f0c6e2a
  arbor-cli delete 1f0c6e2a 7b41d9c0 --hard --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if err := selectNodes(ctx, a, args); err != nil {
			return err
		}

		deleteCmd := commands.NewDeleteCommand(a.Workspace, "", hardDelete)
		plan, err := deleteCmd.Prepare()
		if err != nil {
			return err
		}
		if !confirmCmd(cmd, plan.Title, plan.Prompt) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
		result, err := deleteCmd.Execute(ctx, plan)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

var emptyTrashCmd = &cobra.Command{
	Use:   "empty-trash",
	Short: "Permanently delete everything in your trash bin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if !confirmCmd(cmd, "", commands.EmptyTrashPrompt+"?") {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
		result, err := commands.NewEmptyTrashCommand(a.Workspace).Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

// selectNodes brings ids[0] into view and selects every id. All ids must
// be siblings.
func selectNodes(ctx context.Context, a *app.App, ids []string) error {
	if err := a.Focus(ctx, ids[0]); err != nil {
		return err
	}
	sel := a.Workspace.Selection
	sel.Clear()
	for _, id := range ids {
		if !sel.Toggle(id, true) {
			sel.Clear()
			return &application.UnresolvableReferenceError{NodeID: id, Op: "select"}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(emptyTrashCmd)
	deleteCmd.Flags().BoolVar(&hardDelete, "hard", false, "delete permanently instead of moving to the trash")
}
