package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	dedupev1 "github.com/jamesainslie/dedupe/pkg/api/dedupe/v1"
	"github.com/jamesainslie/dedupe/pkg/daemon/broadcaster"
	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
	"github.com/jamesainslie/dedupe/pkg/dedupe/engine"
	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
	"github.com/jamesainslie/dedupe/pkg/dedupe/tuner"
)

// Config holds daemon configuration.
type Config struct {
	SocketPath string
	DataDir    string
	Version    string

	// Engine configures the hosted job controller.
	Engine *config.Config
}

// Server is the dedupd gRPC server. It hosts exactly one engine.
type Server struct {
	cfg      Config
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
	engine   *engine.Engine
	events   *broadcaster.Broadcaster

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// NewServer creates the engine and binds the Unix socket.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("daemon: engine config is required")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, fmt.Errorf("removing stale socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}

	tuning := tuner.Auto(cfg.Engine.Workers.Scan, cfg.Engine.Workers.Hash)
	events := broadcaster.New(tuning.EventBuffer)

	eng, err := engine.New(cfg.Engine, events)
	if err != nil {
		events.Close()
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		_ = eng.Close()
		events.Close()
		return nil, fmt.Errorf("listening on %s: %w", cfg.SocketPath, err)
	}

	srv := &Server{
		cfg:      cfg,
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		listener: listener,
		engine:   eng,
		events:   events,
		done:     make(chan struct{}),
	}

	dedupev1.RegisterDedupeDaemonServer(srv.grpc, NewService(eng, events, cfg.Version, srv.shutdown))
	healthpb.RegisterHealthServer(srv.grpc, srv.health)
	srv.health.SetServingStatus(dedupev1.ServiceName, healthpb.HealthCheckResponse_SERVING)

	logging.Get("daemon").Info("listening",
		"socket", cfg.SocketPath,
		"hash_workers", eng.Tuning.HashWorkers,
		"event_buffer", tuning.EventBuffer,
	)
	return srv, nil
}

// Serve starts the gRPC server. Blocks until stopped.
func (s *Server) Serve() error {
	err := s.grpc.Serve(s.listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Done is closed when a client asks the daemon to shut down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Engine returns the hosted engine.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

func (s *Server) shutdown() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Close stops the job, ends every WatchJob stream, stops the server and
// removes the socket. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.health.Shutdown()
		engineErr := s.engine.Close()
		s.events.Close()
		s.grpc.GracefulStop()
		sockErr := os.RemoveAll(s.cfg.SocketPath)
		s.closeErr = errors.Join(engineErr, sockErr)
	})
	return s.closeErr
}
