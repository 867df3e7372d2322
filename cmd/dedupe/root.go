package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
)

var (
	cfgFile string
	quiet   bool
	verbose bool

	// appConfig is loaded by initializeLogging before any command runs.
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "dedupe",
		Short: "Find and remove duplicate files",
		Long: `Dedupe finds files with identical content under a directory tree and
helps you reclaim the space taken by the extra copies.

Files are grouped by size first, so only files that share a size are ever
read. Groups are confirmed by a content digest.

Examples:
  dedupe scan ~/Pictures              # Scan in-process and print groups
  dedupe scan -o table --sort count . # Show groups as a table
  dedupe scan --delete-all ~/tmp      # Keep the first copy of every group
  dedupe job start ~/Pictures         # Scan in the background daemon
  dedupe job status                   # Show what the daemon found
  dedupe history                      # List past deletions`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
	}
)

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"min-size":         "min_size",
	"exclude":          "exclude",
	"workers":          "workers.hash",
	"publish-interval": "publish_interval",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/dedupe/config.yaml)")
	pf.StringP("min-size", "s", "", "ignore files smaller than this (e.g. 1M)")
	pf.StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	pf.IntP("workers", "w", 0, "hash workers (0=auto)")
	pf.Duration("publish-interval", 0, "how often partial results are published (e.g. 5s)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "minimal output")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug output")
}

// loadConfig reads the config file and environment, then applies flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.Bind()
	if err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if cmd != nil {
		if err := bindFlags(v, cmd); err != nil {
			return nil, err
		}
	}

	return config.Unmarshal(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// printStatus writes progress to stderr so stdout stays parseable.
func printStatus(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
