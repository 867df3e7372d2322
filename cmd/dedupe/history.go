package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/dedupe/pkg/dedupe/engine"
	"github.com/jamesainslie/dedupe/pkg/dedupe/filter"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View deletion history",
	Long: `View the audit trail of deletions.

Every delete call records the kept copy and the removed files when
manifest.enabled is set.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the files removed by one deletion",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long: `Remove history entries older than --older-than, or older than
manifest.retention_days when the flag is not given.`,
	Args: cobra.NoArgs,
	RunE: runHistoryClean,
}

var (
	historyLimit     int
	historyOlderThan string
)

const historyShowFiles = 50

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyCleanCmd.Flags().StringVar(&historyOlderThan, "older-than", "", "age cutoff (e.g. 7d, 2w, 3mo)")

	historyCmd.AddCommand(historyShowCmd, historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	m, err := engine.OpenManifest(appConfig)
	if err != nil {
		return err
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(entries) == 0 {
		printInfo("No history entries found.")
		if !appConfig.Manifest.Enabled {
			printInfo("Set manifest.enabled to record deletions.")
		}
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "When", "Digest", "Files", "Reclaimed", "Kept"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")

	for _, e := range entries {
		kept := ""
		if len(e.Kept) > 0 {
			kept = e.Kept[0]
		}
		table.Append([]string{
			e.ID,
			humanize.Time(e.Timestamp),
			e.Digest,
			strconv.FormatInt(e.Summary.TotalFiles, 10),
			humanize.IBytes(uint64(e.Summary.TotalBytes)),
			kept,
		})
	}
	table.Render()

	printInfo("\nUse 'dedupe history show <id>' for the removed files.")
	return nil
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	m, err := engine.OpenManifest(appConfig)
	if err != nil {
		return err
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:        %s\n", entry.ID)
	fmt.Printf("Timestamp: %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Job:       %s\n", entry.JobID)
	fmt.Printf("Root:      %s\n", entry.Root)
	fmt.Printf("Digest:    %s\n", entry.Digest)
	fmt.Printf("Reclaimed: %s in %d files\n",
		humanize.IBytes(uint64(entry.Summary.TotalBytes)), entry.Summary.TotalFiles)
	for _, k := range entry.Kept {
		fmt.Printf("Kept:      %s\n", k)
	}

	if len(entry.Files) == 0 {
		return nil
	}
	fmt.Println("\nRemoved:")
	for i, f := range entry.Files {
		if i == historyShowFiles {
			fmt.Printf("  ... and %d more files\n", len(entry.Files)-historyShowFiles)
			break
		}
		fmt.Printf("  %10s  %s\n", humanize.IBytes(uint64(f.Size)), f.Path)
	}
	return nil
}

func runHistoryClean(_ *cobra.Command, _ []string) error {
	days := appConfig.Manifest.RetentionDays
	if historyOlderThan != "" {
		age, err := filter.ParseAge(historyOlderThan)
		if err != nil {
			return err
		}
		days = retentionDays(age)
	}
	if days <= 0 {
		printInfo("Retention is disabled; nothing to clean.")
		return nil
	}

	m, err := engine.OpenManifest(appConfig)
	if err != nil {
		return err
	}

	removed, err := m.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d entries older than %d days", removed, days)
	return nil
}

// retentionDays rounds an age up to whole days.
func retentionDays(age time.Duration) int {
	days := int(age / filter.Day)
	if age%filter.Day != 0 {
		days++
	}
	return days
}
