package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arbor/internal/app"
	"arbor/internal/application/commands"
)

var (
	createOpts  editFlags
	createType  string
	createAtTop bool

	insertOpts  editFlags
	insertType  string
	insertBelow bool
)

var createCmd = &cobra.Command{
	Use:   "create [parent-id]",
	Short: "Create a new child node",
	Long: `Create a new child node and save it with the given name and content.

Without a parent ID the node is created under your home node.

Examples:
  arbor-cli create --name "Groceries" --content "milk"
  arbor-cli create 1f0c6e2a --top --editor`,
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

		createCmd := commands.NewCreateSubNodeCommand(a.Workspace, a.Sessions, a.Workspace.View.RootID(), createType, createAtTop)
		result, err := createCmd.Execute(ctx)
		return saveNew(ctx, cmd, a, result, err, &createOpts)
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <sibling-id>",
	Short: "Insert a new node next to a sibling",
	Long: `Insert a new node above (default) or below an existing node.

Examples:
  arbor-cli insert 1f0c6e2a --name "Before"
  arbor-cli insert 1f0c6e2a --below --content "After"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if err := a.Focus(ctx, args[0]); err != nil {
			return err
		}

		offset := 0
		if insertBelow {
			offset = 1
		}
		insertCmd := commands.NewInsertNodeCommand(a.Workspace, a.Sessions, args[0], insertType, offset)
		result, err := insertCmd.Execute(ctx)
		return saveNew(ctx, cmd, a, result, err, &insertOpts)
	},
}

// saveNew fills and saves the session opened on a new node.
func saveNew(ctx context.Context, cmd *cobra.Command, a *app.App, result *commands.NewNodeResult, err error, opts *editFlags) error {
	if err != nil {
		if result != nil && result.Session != nil {
			_ = result.Session.Cancel()
		}
		return err
	}
	if result.Session == nil {
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	return fillAndSave(ctx, cmd, a, result.Session, opts)
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(insertCmd)

	createOpts.register(createCmd, false)
	createCmd.Flags().StringVarP(&createType, "type", "t", "", "node type (default u)")
	createCmd.Flags().BoolVar(&createAtTop, "top", false, "create as the first child")

	insertOpts.register(insertCmd, false)
	insertCmd.Flags().StringVarP(&insertType, "type", "t", "", "node type (default u)")
	insertCmd.Flags().BoolVarP(&insertBelow, "below", "b", false, "insert below the sibling")
}
