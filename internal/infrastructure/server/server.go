package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/codeper/playground/internal/api/http"
	"github.com/codeper/playground/internal/api/middleware"
	"github.com/codeper/playground/internal/api/ws"
	"github.com/codeper/playground/internal/infrastructure/config"
	"github.com/codeper/playground/internal/infrastructure/logging"
	"github.com/codeper/playground/internal/infrastructure/monitoring"
	"github.com/codeper/playground/internal/infrastructure/tracing"
	"github.com/codeper/playground/internal/preview/relay"
	"github.com/codeper/playground/internal/preview/sandbox"
	"github.com/codeper/playground/internal/share"
	"github.com/codeper/playground/internal/store"
	"github.com/codeper/playground/internal/workspace"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	http      *http.Server
	workspace *workspace.Controller
	host      *sandbox.Host
	stream    *ws.Handler
	tracer    *tracing.Tracer
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// Options overrides collaborators that NewServer would otherwise build from
// the configuration.
type Options struct {
	Logger *logging.Logger
	Store  store.Store
	// NativeSharer is the platform share target, nil when there is none.
	NativeSharer share.NativeSharer
	Clipboard    share.Clipboard
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing playground server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Bool("ephemeral_store", cfg.Store.Ephemeral),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("playground", logger.Component("trace"))

	st := opts.Store
	if st == nil {
		var err error
		st, err = openStore(cfg.Store, logger)
		if err != nil {
			tracer.Close()
			return nil, err
		}
	}

	host := sandbox.NewHost(relay.NewBus(), sandbox.Config{
		Timeout:          cfg.Sandbox.Timeout.Std(),
		MaxCallStackSize: cfg.Sandbox.MaxCallStack,
		MaxTimers:        cfg.Sandbox.MaxTimers,
		Headless:         cfg.Sandbox.Headless,
	}, logger.Component("sandbox"), metrics)

	controller := workspace.New(workspace.Options{
		Store:         st,
		Sandbox:       host,
		AutosaveDelay: cfg.Workspace.AutosaveDelay.Std(),
		Logger:        logger.Component("workspace"),
		Metrics:       metrics,
		RelayMetrics:  metrics,
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := api.NewHandlers(api.Options{
		Workspace: controller,
		Documents: host,
		Sharer:    share.New(opts.NativeSharer, opts.Clipboard, logger.Component("share")),
		PublicURL: cfg.Server.PublicURL,
		Logger:    logger.Component("http"),
	})
	handlers.Register(router)

	streamOpts := ws.DefaultOptions()
	streamOpts.Logger = logger.Component("ws")
	streamOpts.Metrics = metrics
	stream := ws.NewHandler(controller, host.Bus(), streamOpts)
	router.GET("/stream", stream.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:    router,
		workspace: controller,
		host:      host,
		stream:    stream,
		tracer:    tracer,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

func openStore(cfg config.StoreConfig, logger *logging.Logger) (store.Store, error) {
	if cfg.Ephemeral {
		logger.Warn("Using in-memory store, edits are lost on exit")
		return store.NewMemoryStore(cfg.QuotaBytes), nil
	}
	fs, err := store.OpenFile(cfg.Path, cfg.QuotaBytes, logger.Component("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logger.Info("Opened project store", zap.String("path", fs.Path()))
	return fs, nil
}

// Handler returns the HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Workspace returns the change/save controller.
func (s *Server) Workspace() *workspace.Controller {
	return s.workspace
}

// Host returns the sandbox host.
func (s *Server) Host() *sandbox.Host {
	return s.host
}

// Start loads the project and mounts the first document without serving
// HTTP.
func (s *Server) Start(ctx context.Context) error {
	if err := s.workspace.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workspace: %w", err)
	}
	return nil
}

// Run starts the workspace and serves HTTP until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			s.Close()
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	return s.Close()
}

// Close stops the workspace and the sandbox host.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.workspace.Stop()
	if err := s.host.Close(); err != nil {
		s.logger.Error("Failed to close sandbox host", zap.Error(err))
		return fmt.Errorf("failed to close sandbox host: %w", err)
	}
	s.tracer.Close()

	_ = s.logger.Sync()
	return nil
}
