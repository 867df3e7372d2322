package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
	"github.com/jamesainslie/dedupe/pkg/dedupe/engine"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

var (
	scanView      viewFlags
	scanRecursive bool
	scanDeleteAll bool
	scanDryRun    bool
	scanTrash     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory for duplicate files",
	Long: `Scan a directory tree in this process and print the duplicate groups.

Files are bucketed by size, then every bucket with two or more files is
hashed. Press Ctrl-C to stop early; groups confirmed so far are printed.

With --delete-all the first path of every group is kept and the other
copies are removed (or moved to the trash with --trash).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanView.register(scanCmd.Flags())
	scanCmd.Flags().BoolVarP(&scanRecursive, "recursive", "R", true, "descend into subdirectories")
	scanCmd.Flags().BoolVar(&scanDeleteAll, "delete-all", false, "keep the first copy of every group and delete the rest")
	scanCmd.Flags().BoolVarP(&scanDryRun, "dry-run", "n", false, "with --delete-all, only print what would be deleted")
	scanCmd.Flags().BoolVar(&scanTrash, "trash", false, "move deleted files to the trash")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	cfg.Watch = false
	if scanTrash {
		cfg.Delete.Mode = config.DeleteModeTrash
	}

	root := cfg.DefaultPath
	if len(args) > 0 {
		root = args[0]
	}
	recursive := cfg.Recursive
	if cmd.Flags().Changed("recursive") {
		recursive = scanRecursive
	}

	// Fail on bad view flags before spending time on a scan.
	if _, err := scanView.buildFilter(); err != nil {
		return err
	}
	if _, err := scanView.formatter(); err != nil {
		return err
	}

	eng, err := engine.New(&cfg, &progressPrinter{})
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	h, err := eng.Start(root, recursive)
	if err != nil {
		return fmt.Errorf("starting scan: %w", err)
	}
	printVerbose("job %s: %d hash workers, %d scan workers", h.ID, eng.Tuning.HashWorkers, eng.Tuning.ScanWorkers)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-h.Done:
	case <-ctx.Done():
		printStatus("\nInterrupted, stopping scan...")
		eng.RequestStop()
		<-h.Done
	}

	var warnings []string
	if scanDeleteAll {
		warnings = deleteAll(eng, scanDryRun)
	}

	snap := eng.Snapshot()
	out, err := scanView.render(snap, false, warnings)
	if err != nil {
		return err
	}
	fmt.Print(out)

	if snap.Status == types.StatusFailed {
		return fmt.Errorf("scan failed: %s", snap.Error)
	}
	return nil
}

// deleteAll keeps the first member of every pending group and removes the
// rest. Failures are returned as warnings.
func deleteAll(eng *engine.Engine, dryRun bool) []string {
	snap := eng.Snapshot()
	if snap.Status != types.StatusDone {
		return []string{"--delete-all skipped: the scan did not complete"}
	}

	var (
		warnings  []string
		deleted   int
		reclaimed int64
	)
	for _, g := range snap.Groups {
		if len(g.Paths) < 2 {
			continue
		}
		if dryRun {
			for _, p := range g.Paths[1:] {
				printStatus("would delete %s", p)
			}
			deleted += len(g.Paths) - 1
			reclaimed += g.Wasted()
			continue
		}

		res, err := eng.DeleteGroup(g.Digest)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("group %s: %v", g.Digest, err))
			continue
		}
		warnings = append(warnings, res.Errors...)
		deleted += res.DeletedCount
		reclaimed += res.ReclaimedBytes
	}

	verb := "deleted"
	if dryRun {
		verb = "would delete"
	}
	printStatus("%s %d files, %s reclaimed", verb, deleted, humanize.IBytes(uint64(reclaimed)))
	return warnings
}

// progressPrinter reports job status changes on stderr.
type progressPrinter struct {
	mu   sync.Mutex
	last string
}

func (p *progressPrinter) Publish(ev types.JobEvent) {
	if ev.Kind != types.EventStatus && ev.Kind != types.EventGroups {
		return
	}

	line := ev.Message
	if ev.Status == types.StatusHashing && ev.Progress.BucketsTotal > 0 {
		line = fmt.Sprintf("hashing %d/%d buckets, %d files hashed, %d duplicate groups",
			ev.Progress.BucketsDone, ev.Progress.BucketsTotal,
			ev.Progress.FilesHashed, ev.Summary.DuplicateGroups)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == "" || line == p.last {
		return
	}
	p.last = line
	printStatus("%s", line)
}
