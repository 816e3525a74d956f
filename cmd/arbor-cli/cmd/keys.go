package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arbor/internal/adapters/crypto"
	"arbor/internal/adapters/sqlite"
	"arbor/internal/application/keys"
)

var watchSchedule string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage your key pair and undelivered content keys",
	Long: `Content keys of encrypted nodes are delivered to everyone the node is
shared with when it is saved. Deliveries that fail are queued locally and
retried with 'keys retry' or on a schedule with 'keys watch'.`,
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print your public key",
	Long: `Print your public key, creating a key pair on first use. The server
administrator adds it to [server.public_keys] so that encrypted nodes can
be shared with you.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		box, err := crypto.LoadOrCreate(cfg.Keys.PrivateKey, cfg.Keys.PublicKey)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), box.PublicKey())
		return nil
	},
}

var keysPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List undelivered content keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := sqlite.OpenQueue(cfg.QueuePath())
		if err != nil {
			return err
		}
		defer q.Close()

		pending, err := q.Pending(context.Background())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(pending) == 0 {
			fmt.Fprintln(out, "No pending deliveries.")
			return nil
		}
		for _, p := range pending {
			fmt.Fprintf(out, "%s  -> %s (%s)  queued %s", p.NodeID, p.PrincipalName, p.PrincipalNodeID,
				p.QueuedAt.Format(time.DateTime))
			if p.LastError != "" {
				fmt.Fprintf(out, "  last error: %s", p.LastError)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var keysRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry undelivered content keys now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		report, err := a.Keys.RetryPending(ctx)
		if err != nil {
			return err
		}
		printReport(cmd, report)
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d node(s) still have undelivered keys", len(report.Failures))
		}
		return nil
	},
}

var keysWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Retry undelivered content keys on a schedule",
	Long: `Retry undelivered content keys on a cron schedule until interrupted.
The schedule defaults to [retry] schedule in config.toml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := GetApp(ctx)
		if err != nil {
			return err
		}
		schedule := cfg.Retry.Schedule
		if watchSchedule != "" {
			schedule = watchSchedule
		}

		sched := keys.NewRetryScheduler(a.Keys.RetryPending).WithLogger(logger)
		if err := sched.SetSchedule(schedule); err != nil {
			return err
		}
		sched.Start()
		status := sched.Status()
		fmt.Fprintf(cmd.OutOrStdout(), "Retrying on %q, next run %s. Press Ctrl+C to stop.\n",
			status.Schedule, status.NextRun.Format(time.DateTime))

		<-ctx.Done()
		<-sched.Stop().Done()
		return nil
	},
}

func printReport(cmd *cobra.Command, report *keys.RetryReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Delivered %d key(s), %d remaining\n", report.Delivered, report.Remaining)
	nodes := make([]string, 0, len(report.Failures))
	for id := range report.Failures {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	for _, id := range nodes {
		fmt.Fprintf(out, "  %s: %v\n", id, report.Failures[id])
	}
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysShowCmd)
	keysCmd.AddCommand(keysPendingCmd)
	keysCmd.AddCommand(keysRetryCmd)
	keysCmd.AddCommand(keysWatchCmd)
	keysWatchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron expression overriding the configured schedule")
}
