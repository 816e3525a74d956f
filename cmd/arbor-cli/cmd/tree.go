package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"arbor/internal/app"
	"arbor/internal/application"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

var treeDepth int

var treeCmd = &cobra.Command{
	Use:   "tree [node-id]",
	Short: "Display a node and its descendants",
	Long: `Display a node and its descendants with their IDs.

Without an ID the tree starts at your home node.

Examples:
  arbor-cli tree
  arbor-cli tree 1f0c6e2a --depth 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		rootID := a.Workspace.HomeNodeID
		if len(args) == 1 {
			rootID = args[0]
		}
		return printTree(ctx, cmd.OutOrStdout(), a, rootID, 0)
	},
}

// printTree renders nodeID and recurses into children down to treeDepth.
func printTree(ctx context.Context, out io.Writer, a *app.App, nodeID string, depth int) error {
	res, err := a.Authority.RenderNode(ctx, ports.RenderNodeRequest{NodeID: nodeID})
	if err != nil {
		return fmt.Errorf("failed to render node %s: %w", nodeID, err)
	}
	if err := application.CheckSuccess(ports.OpRenderNode, res.ResponseBase); err != nil {
		return err
	}

	if depth == 0 {
		fmt.Fprintln(out, formatNode(res.Node))
	}
	indent := strings.Repeat("  ", depth+1)
	for _, child := range res.Children {
		fmt.Fprintf(out, "%s%s\n", indent, formatNode(child))
		if child.HasChildren && depth+1 < treeDepth {
			if err := printTree(ctx, out, a, child.ID, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatNode(n *domain.Node) string {
	line := fmt.Sprintf("%s  [%s]  %s", n.ID, n.Type, summary(n))
	var marks []string
	if n.HasChildren {
		marks = append(marks, "+")
	}
	if n.IsEncrypted() {
		marks = append(marks, "encrypted")
	}
	if n.Public {
		marks = append(marks, "public")
	}
	if len(marks) > 0 {
		line += "  (" + strings.Join(marks, ", ") + ")"
	}
	return line
}

func summary(n *domain.Node) string {
	if n.Name != "" {
		return n.Name
	}
	if n.IsEncrypted() {
		return "[encrypted]"
	}
	first, _, _ := strings.Cut(strings.TrimSpace(n.Content), "\n")
	if len(first) > 60 {
		first = first[:60] + "..."
	}
	return first
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", 1, "levels of children to show")
}
