package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/dedupe/pkg/client"
	"github.com/jamesainslie/dedupe/pkg/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the dedupd daemon",
	Long: `Manage the dedupd daemon.

The daemon hosts one scan job at a time so that long scans survive the
terminal that started them. Use "dedupe job" to drive it.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dedupd daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the dedupd daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the dedupd daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonRestartCmd, daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	paths := daemonPaths(appConfig)
	printVerbose("starting daemon (socket %s)", paths.Socket)
	if err := client.StartDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths := daemonPaths(appConfig)
	if !daemon.IsDaemonRunning(pidPath(paths)) {
		printInfo("Daemon is not running")
		return nil
	}
	if err := client.StopDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(_ *cobra.Command, _ []string) error {
	if err := client.RestartDaemon(daemonPaths(appConfig)); err != nil {
		return err
	}
	printInfo("Daemon restarted")
	return nil
}

func pidPath(paths client.DaemonPaths) string {
	if paths.PID != "" {
		return paths.PID
	}
	return client.DefaultPaths().PID
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	paths := daemonPaths(appConfig)
	if !daemon.IsDaemonRunning(pidPath(paths)) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	socket := paths.Socket
	if socket == "" {
		socket = client.DefaultPaths().Socket
	}
	c, err := client.ConnectWithContext(ctx, socket)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer c.Close()

	status, err := c.DaemonStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	printInfo("Daemon status: running")
	printInfo("  PID:      %d", status.PID)
	printInfo("  Version:  %s", status.Version)
	printInfo("  Uptime:   %s", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
	printInfo("  Memory:   %s", humanize.IBytes(uint64(status.MemoryBytes)))
	printInfo("  Cache:    %s digests", humanize.Comma(int64(status.CacheEntries)))
	printInfo("  Watchers: %d", status.Watchers)
	if status.JobID != "" {
		printInfo("  Job:      %s (%s)", status.JobID, status.JobStatus)
	} else {
		printInfo("  Job:      %s", status.JobStatus)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
}
