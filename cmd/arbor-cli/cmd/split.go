package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arbor/internal/application/commands"
	"arbor/internal/ports"
)

var (
	splitChildren  bool
	splitDelimiter string
)

var splitCmd = &cobra.Command{
	Use:   "split <id>",
	Short: "Split a node's content into several nodes",
	Long: `Split the content of a node at a delimiter. The pieces become new
siblings after the node, or its children with --children.

The default delimiter is two blank lines.

Examples:
  arbor-cli split 1f0c6e2a
  arbor-cli split 1f0c6e2a --children --delimiter "---"`,
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

		splitType := ports.SplitInline
		if splitChildren {
			splitType = ports.SplitChildren
		}
		result, err := commands.NewSplitCommand(a.Workspace, splitType, splitDelimiter).Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().BoolVar(&splitChildren, "children", false, "make the pieces children of the node")
	splitCmd.Flags().StringVar(&splitDelimiter, "delimiter", "", "delimiter to split at")
}
