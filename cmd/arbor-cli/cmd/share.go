package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"arbor/internal/app"
	"arbor/internal/application/commands"
	"arbor/internal/domain"
)

var shareCmd = &cobra.Command{
	Use:   "share <id> <user|public>",
	Short: "Share a node read-only",
	Long: `Share a node read-only with a user, or with everyone.

Encrypted nodes cannot be shared with public. Sharing an encrypted node
with a user takes effect for its content on the next save, when the
content key is delivered to them.

Examples:
  arbor-cli share 1f0c6e2a bob
  arbor-cli share 1f0c6e2a public`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := shareTarget(ctx, args[0])
		if err != nil {
			return err
		}
		shareCmd := commands.NewShareCommand(a.Workspace, args[0])
		var result *commands.PrivilegesResult
		if args[1] == domain.PrincipalPublic {
			result, err = shareCmd.ShareToPublic(ctx)
		} else {
			result, err = shareCmd.ShareWithUser(ctx, args[1])
		}
		if err != nil {
			return err
		}
		printPrivileges(cmd.OutOrStdout(), result)
		return nil
	},
}

var unshareCmd = &cobra.Command{
	Use:   "unshare <id> <principal-id>",
	Short: "Remove read access of a principal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := shareTarget(ctx, args[0])
		if err != nil {
			return err
		}
		result, err := commands.NewShareCommand(a.Workspace, args[0]).Unshare(ctx, args[1], domain.PrivilegeRead)
		if err != nil {
			return err
		}
		printPrivileges(cmd.OutOrStdout(), result)
		return nil
	},
}

var privilegesCmd = &cobra.Command{
	Use:   "privileges <id>",
	Short: "List who a node is shared with",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := shareTarget(ctx, args[0])
		if err != nil {
			return err
		}
		result, err := commands.NewShareCommand(a.Workspace, args[0]).Privileges(ctx)
		if err != nil {
			return err
		}
		printPrivileges(cmd.OutOrStdout(), result)
		return nil
	},
}

func shareTarget(ctx context.Context, id string) (*app.App, error) {
	a, err := GetApp(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.Focus(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

func printPrivileges(out io.Writer, res *commands.PrivilegesResult) {
	fmt.Fprintf(out, "Owners: %s\n", strings.Join(res.Owners, ", "))
	if len(res.Entries) == 0 {
		fmt.Fprintln(out, "Not shared")
		return
	}
	for _, e := range res.Entries {
		privs := make([]string, len(e.Privileges))
		for i, p := range e.Privileges {
			privs[i] = string(p)
		}
		fmt.Fprintf(out, "  %s  %s  %s\n", e.PrincipalNodeID, e.PrincipalName, strings.Join(privs, ","))
	}
}

func init() {
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(unshareCmd)
	rootCmd.AddCommand(privilegesCmd)
}
