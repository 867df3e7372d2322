// Command dedupd hosts one duplicate-finding job behind a gRPC service on a
// Unix socket. It is normally started by `dedupe daemon start` or by the
// CLI's auto-start.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jamesainslie/dedupe/pkg/daemon"
	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// Set with -ldflags.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "dedupd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("dedupd", pflag.ContinueOnError)
	socketPath := fs.String("socket", "", "unix socket to listen on")
	pidPath := fs.String("pid", "", "pid file")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println("dedupd", version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *socketPath == "" {
		*socketPath = firstNonEmpty(cfg.Daemon.SocketPath, config.DefaultSocketPath())
	}
	if *pidPath == "" {
		*pidPath = firstNonEmpty(cfg.Daemon.PIDPath, config.DefaultPIDPath())
	}
	dataDir := filepath.Dir(*socketPath)
	statusPath := daemon.StatusPath(dataDir)

	if err := initLogging(cfg); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()
	log := logging.Get("daemon")

	if err := daemon.RecoverFromStaleDaemon(*pidPath, *socketPath, statusPath); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*pidPath), 0o755); err != nil {
		return fmt.Errorf("creating pid directory: %w", err)
	}
	if err := daemon.WritePIDFile(*pidPath); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer func() {
		if err := daemon.RemovePIDFile(*pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove pid file", "error", err)
		}
		_ = daemon.RemoveStatus(statusPath)
	}()

	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: *socketPath,
		DataDir:    dataDir,
		Version:    version,
		Engine:     cfg,
	})
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return err
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	if err := daemon.WriteStatusReady(statusPath, *socketPath, version); err != nil {
		log.Warn("failed to write status file", "error", err)
	}
	log.Info("dedupd started", "pid", os.Getpid(), "version", version)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var serveErr error
	select {
	case sig := <-sigs:
		log.Info("shutting down", "signal", sig.String())
	case <-srv.Done():
		log.Info("shutting down", "reason", "rpc")
	case serveErr = <-served:
		log.Error("server stopped", "error", serveErr)
	}

	closeErr := srv.Close()
	if serveErr == nil {
		serveErr = <-served
	}
	return errors.Join(serveErr, closeErr)
}

// initLogging sends daemon logs to the rotating log file only.
func initLogging(cfg *config.Config) error {
	rotation := logging.DefaultRotationConfig()
	rotation.MaxAge = cfg.Logging.Rotation.MaxAge
	rotation.MaxBackups = cfg.Logging.Rotation.MaxBackups
	rotation.Daily = cfg.Logging.Rotation.Daily
	if n, err := types.ParseSize(cfg.Logging.Rotation.MaxSize); err == nil && n > 0 {
		rotation.MaxSize = n
	}

	return logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Path:       firstNonEmpty(cfg.Logging.Path, config.DefaultLogPath()),
		Rotation:   rotation,
		Components: cfg.Logging.Components,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
