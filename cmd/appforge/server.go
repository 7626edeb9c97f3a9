package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/appforge/internal/shell/api"
	"github.com/artpar/appforge/internal/shell/registration"
	"github.com/artpar/appforge/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitUsageError      = 3
	ExitHTTPServerError = 4
	ExitValidationError = 5
	ExitNotFound        = 6
)

// =============================================================================
// Server
// =============================================================================

// Server represents the AppForge HTTP server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	service    *registration.Service
	logger     *slog.Logger
}

// ServerError carries the exit code a failure maps to.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// OpenStore opens the registry storage selected by cfg.
func OpenStore(cfg *Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		if err := ensureParentDir(cfg.Database.DSN); err != nil {
			return nil, err
		}
		return store.NewSQLiteStore(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// NewService builds the registration service from cfg.
func NewService(cfg *Config, s store.Store, logger *slog.Logger) *registration.Service {
	return registration.NewService(s, registration.Config{
		DescriptionBudget: cfg.Registry.DescriptionBudget,
		Stylesheet:        cfg.Scaffold.Stylesheet,
	}, logger)
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	s, err := OpenStore(cfg)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	svc := NewService(cfg, s, logger)
	handler := api.NewHandler(svc, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		service:    svc,
		logger:     logger,
	}, nil
}

// Start serves HTTP until a signal arrives, ctx is cancelled, or the
// listener fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address(),
			"driver", s.config.Database.Driver,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.store.Close()
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}
