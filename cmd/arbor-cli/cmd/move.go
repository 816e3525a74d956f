package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"arbor/internal/application"
	"arbor/internal/application/commands"
	"arbor/internal/ports"
)

var pasteLocation string

var cutCmd = &cobra.Command{
	Use:   "cut <id>...",
	Short: "Stage sibling nodes to be moved by paste",
	Long: `Stage sibling nodes to be moved. The cut is kept until the next paste,
cut or undo-cut, also across invocations.

Examples:
  arbor-cli cut 1f0c6e2a 7b41d9c0
  arbor-cli paste 3c9e0f11 --location inside`,
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

		cutCmd := commands.NewCutCommand(a.Workspace, "")
		plan, err := cutCmd.Prepare()
		if err != nil {
			return err
		}
		if !confirmCmd(cmd, "", plan.Prompt) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
		result := cutCmd.Execute(plan)
		if err := a.Queue.SaveCut(ctx, result.NodeIDs); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

var pasteCmd = &cobra.Command{
	Use:   "paste <target-id>",
	Short: "Move the cut nodes relative to a target node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		ids, err := a.Queue.LoadCut(ctx)
		if err != nil {
			return err
		}
		a.Workspace.Clipboard.Stage(ids)

		if err := a.Focus(ctx, args[0]); err != nil {
			return err
		}
		result, err := commands.NewPasteCommand(a.Workspace, args[0], pasteLocation, nil).Execute(ctx)
		if err != nil {
			return err
		}
		if err := a.Queue.ClearCut(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

var undoCutCmd = &cobra.Command{
	Use:   "undo-cut",
	Short: "Discard the staged cut",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		ids, err := a.Queue.LoadCut(ctx)
		if err != nil {
			return err
		}
		a.Workspace.Clipboard.Stage(ids)

		result := commands.NewUndoCutCommand(a.Workspace).Execute()
		if err := a.Queue.ClearCut(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <target-id> <id>...",
	Short: "Move nodes relative to a target node",
	Long: `Move nodes relative to a target node in one step, without a staged cut.

Locations:
  inside        as the last children of the target (default)
  inline        right below the target
  inline-above  right above the target

Examples:
  arbor-cli move 3c9e0f11 1f0c6e2a
  arbor-cli move 3c9e0f11 1f0c6e2a 7b41d9c0 --location inline`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		targetID := args[0]
		if err := a.Focus(ctx, targetID); err != nil {
			return err
		}
		result, err := commands.NewPasteCommand(a.Workspace, targetID, pasteLocation, args[1:]).Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	},
}

var reorderCmd = &cobra.Command{
	Use:   "reorder <id> <up|down|top|bottom>",
	Short: "Move a node among its siblings",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		if err := application.ValidateDirection(args[1]); err != nil {
			return err
		}
		if err := a.Focus(ctx, args[0]); err != nil {
			return err
		}
		result, err := commands.NewReorderCommand(a.Workspace, args[0], args[1]).Execute(ctx)
		if err != nil {
			return err
		}
		if result.Message != "" {
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cutCmd)
	rootCmd.AddCommand(pasteCmd)
	rootCmd.AddCommand(undoCutCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(reorderCmd)

	for _, c := range []*cobra.Command{pasteCmd, moveCmd} {
		c.Flags().StringVarP(&pasteLocation, "location", "l", ports.LocationInside, "inside, inline or inline-above")
	}
}
