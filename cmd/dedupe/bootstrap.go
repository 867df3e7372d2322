package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dedupe/pkg/client"
	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// initializeLogging loads the configuration, makes sure the XDG directories
// exist and starts file logging. It runs before every command.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	appConfig = cfg

	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.EnsureDataDir(); err != nil {
		return err
	}

	if err := logging.Init(loggingConfig(cfg)); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	return nil
}

func loggingConfig(cfg *config.Config) logging.Config {
	lc := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}
	if lc.Path == "" {
		lc.Path = config.DefaultLogPath()
	}
	if verbose {
		lc.ConsoleLevel = "debug"
	}
	return lc
}

// parseRotationConfig converts the config form, where max_size is a
// human-readable string, into the logging form. Bad sizes fall back to the
// default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxSize:    logging.DefaultRotationConfig().MaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
	if rc.MaxSize != "" {
		if n, err := types.ParseSize(rc.MaxSize); err == nil && n > 0 {
			out.MaxSize = n
		}
	}
	return out
}

// daemonPaths returns the daemon paths configured in cfg.
func daemonPaths(cfg *config.Config) client.DaemonPaths {
	return client.DaemonPaths{
		Binary: cfg.Daemon.BinaryPath,
		Socket: cfg.Daemon.SocketPath,
		PID:    cfg.Daemon.PIDPath,
	}
}

// maybeStartDaemon starts dedupd when auto_start is on. It is a no-op when
// the daemon is already running.
func maybeStartDaemon(cfg *config.Config) error {
	if !cfg.Daemon.AutoStart {
		return nil
	}
	return client.StartDaemon(daemonPaths(cfg))
}
