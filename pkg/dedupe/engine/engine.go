// Package engine assembles a job controller from configuration: worker
// sizing, the digest cache, the removal mode and the deletion manifest.
// The CLI uses it for in-process scans and dedupd for its single job.
package engine

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jamesainslie/dedupe/pkg/dedupe/cache"
	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
	"github.com/jamesainslie/dedupe/pkg/dedupe/job"
	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
	"github.com/jamesainslie/dedupe/pkg/dedupe/manifest"
	"github.com/jamesainslie/dedupe/pkg/dedupe/trash"
	"github.com/jamesainslie/dedupe/pkg/dedupe/tuner"
)

// Engine owns a controller and the resources behind it.
type Engine struct {
	*job.Controller

	Tuning   tuner.OptimalConfig
	Cache    *cache.Cache
	Manifest *manifest.Manifest
}

// New builds an engine. events may be nil.
func New(cfg *config.Config, events job.Publisher) (*Engine, error) {
	log := logging.Get("engine")
	tuning := tuner.Auto(cfg.Workers.Scan, cfg.Workers.Hash)

	e := &Engine{Tuning: tuning}

	opts := job.Options{
		PublishInterval: cfg.PublishInterval,
		Workers:         tuning.HashWorkers,
		ScanWorkers:     tuning.ScanWorkers,
		Exclude:         cfg.Exclude,
		MinSize:         cfg.MinSizeBytes(),
		Remover:         NewRemover(cfg.Delete.Mode),
		Watch:           cfg.Watch,
		Events:          events,
	}

	if cfg.Cache.Enabled {
		c, err := cache.Open()
		if err != nil {
			return nil, fmt.Errorf("opening digest cache: %w", err)
		}
		e.Cache = c
		opts.Cache = c
	}

	if cfg.Manifest.Enabled {
		m, err := OpenManifest(cfg)
		if err != nil {
			_ = e.closeCache()
			return nil, err
		}
		if n, err := m.Cleanup(cfg.Manifest.RetentionDays); err != nil {
			log.Warn("manifest cleanup failed", "error", err)
		} else if n > 0 {
			log.Info("expired manifest entries removed", "count", n)
		}
		e.Manifest = m
		opts.Manifest = m
	}

	e.Controller = job.NewController(opts)

	log.Debug("engine ready",
		"scan_workers", tuning.ScanWorkers,
		"hash_workers", tuning.HashWorkers,
		"cache", cfg.Cache.Enabled,
		"manifest", cfg.Manifest.Enabled,
		"delete_mode", cfg.Delete.Mode,
	)
	return e, nil
}

// NewRemover returns the remover for a delete mode.
func NewRemover(mode string) job.Remover {
	if mode == config.DeleteModeTrash {
		return trash.Remover{}
	}
	return job.OSRemover{}
}

// ManifestDir returns the configured manifest directory, defaulting to
// $XDG_DATA_HOME/dedupe/manifest.
func ManifestDir(cfg *config.Config) (string, error) {
	if cfg.Manifest.Path == "" {
		return filepath.Join(config.DataDir(), "manifest"), nil
	}
	return config.ExpandPath(cfg.Manifest.Path)
}

// OpenManifest opens the configured manifest directory.
func OpenManifest(cfg *config.Config) (*manifest.Manifest, error) {
	dir, err := ManifestDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest path: %w", err)
	}
	m, err := manifest.New(dir)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	return m, nil
}

// Close stops the controller and releases the cache.
func (e *Engine) Close() error {
	return errors.Join(e.Controller.Close(), e.closeCache())
}

// CacheLen returns the number of cached digests, or zero without a cache.
func (e *Engine) CacheLen() int {
	if e.Cache == nil {
		return 0
	}
	return e.Cache.Len()
}

func (e *Engine) closeCache() error {
	if e.Cache == nil {
		return nil
	}
	return e.Cache.Close()
}
