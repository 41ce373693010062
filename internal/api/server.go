package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-qsys/internal/bridge"
	"github.com/nerrad567/gray-logic-qsys/internal/history"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceLister is implemented by *bridge.Bridge.
type DeviceLister interface {
	Devices() []bridge.DeviceInfo
}

// HealthSource is implemented by *bridge.HealthReporter.
type HealthSource interface {
	Status() (bridge.HealthStatus, string)
}

// Deps holds the server's collaborators. Logger and Directory are
// required; a nil Devices, Health or History makes the matching route
// answer 503.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Directory *qsys.Directory
	Devices   DeviceLister
	Health    HealthSource
	History   history.Repository
	Version   string
}

// Server is the HTTP status API.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	directory *qsys.Directory
	devices   DeviceLister
	health    HealthSource
	history   history.Repository
	version   string
	started   time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a server; it does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("core directory is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		directory: deps.Directory,
		devices:   deps.Devices,
		health:    deps.Health,
		history:   deps.History,
		version:   deps.Version,
		started:   time.Now(),
	}, nil
}

// Start binds the listen address and serves in the background. Binding
// happens synchronously so a port conflict is reported here.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts the server down.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
