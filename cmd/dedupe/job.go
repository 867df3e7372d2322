package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/dedupe/pkg/client"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

const rpcTimeout = 30 * time.Second

var (
	jobView      viewFlags
	jobRecursive bool
	jobFollow    bool
	jobKinds     []string
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Control the scan job hosted by dedupd",
	Long: `Start, inspect and act on the single scan job hosted by the dedupd daemon.

The daemon is started automatically when daemon.auto_start is enabled.`,
}

var jobStartCmd = &cobra.Command{
	Use:   "start [path]",
	Short: "Start a scan in the daemon",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJobStart,
}

var jobStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running scan, keeping the groups found so far",
	Args:  cobra.NoArgs,
	RunE:  runJobStop,
}

var jobStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the daemon's current snapshot",
	Args:  cobra.NoArgs,
	RunE:  runJobStatus,
}

var jobWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream job events until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runJobWatch,
}

var jobDeleteCmd = &cobra.Command{
	Use:   "delete <digest>",
	Short: "Keep the first copy in a group and delete the others",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobDelete,
}

var jobDeleteSelectedCmd = &cobra.Command{
	Use:   "delete-selected <digest> <path>...",
	Short: "Delete chosen copies from a group",
	Long: `Delete the given members of a duplicate group. At least one member must
remain unselected; paths outside the group are reported and skipped.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runJobDeleteSelected,
}

var jobClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the finished job and return to idle",
	Args:  cobra.NoArgs,
	RunE:  runJobClear,
}

var jobPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop resolved groups from the snapshot",
	Args:  cobra.NoArgs,
	RunE:  runJobPrune,
}

func init() {
	jobStartCmd.Flags().BoolVarP(&jobRecursive, "recursive", "R", true, "descend into subdirectories")
	jobStartCmd.Flags().BoolVarP(&jobFollow, "follow", "f", false, "watch the job until it finishes")
	jobStatusCmd.Flags().BoolVarP(&jobFollow, "follow", "f", false, "wait for the job to finish first")
	jobView.register(jobStatusCmd.Flags())
	jobWatchCmd.Flags().StringSliceVarP(&jobKinds, "kind", "k", nil, "event kinds to show (status, log, groups, deleted, reconciled, cleared)")

	jobCmd.AddCommand(jobStartCmd, jobStopCmd, jobStatusCmd, jobWatchCmd,
		jobDeleteCmd, jobDeleteSelectedCmd, jobClearCmd, jobPruneCmd)
	rootCmd.AddCommand(jobCmd)
}

// connectDaemon returns a client, starting the daemon first when
// auto_start is enabled.
func connectDaemon(ctx context.Context) (*client.Client, error) {
	if err := maybeStartDaemon(appConfig); err != nil {
		return nil, err
	}
	socket := appConfig.Daemon.SocketPath
	if socket == "" {
		socket = client.DefaultPaths().Socket
	}
	c, err := client.ConnectWithContext(ctx, socket)
	if err != nil {
		return nil, fmt.Errorf("%w (start it with: dedupe daemon start)", err)
	}
	return c, nil
}

// withDaemon runs fn with a connected client and a bounded context.
func withDaemon(fn func(ctx context.Context, c *client.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}

func runJobStart(cmd *cobra.Command, args []string) error {
	root := appConfig.DefaultPath
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	recursive := appConfig.Recursive
	if cmd.Flags().Changed("recursive") {
		recursive = jobRecursive
	}

	err = withDaemon(func(ctx context.Context, c *client.Client) error {
		id, err := c.StartScan(ctx, abs, recursive)
		if err != nil {
			return err
		}
		printInfo("Started job %s on %s", id, abs)
		return nil
	})
	if err != nil || !jobFollow {
		return err
	}
	return followJob(cmd.Context())
}

// followJob prints status events until the job reaches a terminal state.
func followJob(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	events, err := c.Watch(ctx, types.EventStatus, types.EventGroups)
	if err != nil {
		return err
	}
	printer := &progressPrinter{}
	for ev := range events {
		printer.Publish(ev)
		if ev.Status.Terminal() || ev.Status == types.StatusIdle {
			return nil
		}
	}
	return ctx.Err()
}

func runJobStop(_ *cobra.Command, _ []string) error {
	return withDaemon(func(ctx context.Context, c *client.Client) error {
		if err := c.RequestStop(ctx); err != nil {
			return err
		}
		printInfo("Stop requested")
		return nil
	})
}

func runJobStatus(cmd *cobra.Command, _ []string) error {
	if jobFollow {
		if err := followJob(cmd.Context()); err != nil {
			return err
		}
	}
	return withDaemon(func(ctx context.Context, c *client.Client) error {
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return err
		}
		out, err := jobView.render(snap, true, nil)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	})
}

func runJobWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	kinds := make([]types.EventKind, 0, len(jobKinds))
	for _, k := range jobKinds {
		kinds = append(kinds, types.EventKind(k))
	}

	events, err := c.Watch(ctx, kinds...)
	if err != nil {
		return err
	}
	for ev := range events {
		fmt.Println(formatEvent(ev))
	}
	return nil
}

func formatEvent(ev types.JobEvent) string {
	line := fmt.Sprintf("%s %-10s %-8s %s", ev.Time.Format("15:04:05"), ev.Kind, ev.Status, ev.Message)
	switch ev.Kind {
	case types.EventGroups:
		line += fmt.Sprintf(" (%d groups, %d/%d buckets)",
			ev.Summary.DuplicateGroups, ev.Progress.BucketsDone, ev.Progress.BucketsTotal)
	case types.EventDeleted, types.EventReconciled:
		line += fmt.Sprintf(" [%s] reclaimed %s", ev.Digest, humanize.IBytes(uint64(ev.Summary.ReclaimedBytes)))
	}
	return line
}

func printDeleteResult(res types.DeleteResult) {
	printInfo("Deleted %d files, reclaimed %s", res.DeletedCount, humanize.IBytes(uint64(res.ReclaimedBytes)))
	if res.Kept != "" {
		printInfo("Kept %s", res.Kept)
	}
	for _, e := range res.Errors {
		printError("%s", e)
	}
	if res.Resolved {
		printInfo("Group %s is resolved", res.Digest)
	}
}

func runJobDelete(_ *cobra.Command, args []string) error {
	return withDaemon(func(ctx context.Context, c *client.Client) error {
		res, err := c.DeleteGroup(ctx, args[0])
		if err != nil {
			return err
		}
		printDeleteResult(res)
		return nil
	})
}

func runJobDeleteSelected(_ *cobra.Command, args []string) error {
	paths := make([]string, 0, len(args)-1)
	for _, p := range args[1:] {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		paths = append(paths, abs)
	}

	return withDaemon(func(ctx context.Context, c *client.Client) error {
		res, err := c.DeleteSelected(ctx, args[0], paths)
		if err != nil {
			return err
		}
		printDeleteResult(res)
		return nil
	})
}

func runJobClear(_ *cobra.Command, _ []string) error {
	return withDaemon(func(ctx context.Context, c *client.Client) error {
		if err := c.Clear(ctx); err != nil {
			return err
		}
		printInfo("Job cleared")
		return nil
	})
}

func runJobPrune(_ *cobra.Command, _ []string) error {
	return withDaemon(func(ctx context.Context, c *client.Client) error {
		n, err := c.PruneResolved(ctx)
		if err != nil {
			return err
		}
		printInfo("Pruned %d resolved groups", n)
		return nil
	})
}
