// Package server runs Bellhop's long-lived components.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Worker is a background component that runs until ctx is canceled.
type Worker interface {
	Run(ctx context.Context) error
}

// Pruner deletes sessions idle since before.
type Pruner interface {
	PruneIdle(ctx context.Context, before time.Time) (int64, error)
}

// Config for the runner.
type Config struct {
	Addr            string
	MaxIdle         time.Duration
	PruneInterval   time.Duration
	ShutdownTimeout time.Duration
}

// Runner manages the HTTP server, the audit worker and session pruning.
type Runner struct {
	handler http.Handler
	audit   Worker
	pruner  Pruner
	config  Config
	logger  *slog.Logger

	ready chan struct{}
	addr  net.Addr
}

// NewRunner creates a new runner. audit and pruner may be nil.
func NewRunner(handler http.Handler, audit Worker, pruner Pruner, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Runner{
		handler: handler,
		audit:   audit,
		pruner:  pruner,
		config:  cfg,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the server is listening.
func (r *Runner) Ready() <-chan struct{} {
	return r.ready
}

// Addr returns the listening address. Valid after Ready is closed.
func (r *Runner) Addr() net.Addr {
	return r.addr
}

// Run starts all components.
// It blocks until the context is canceled or a component fails, then shuts
// the HTTP server down gracefully.
func (r *Runner) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.config.Addr, err)
	}
	r.addr = ln.Addr()
	close(r.ready)

	srv := &http.Server{
		Handler:           r.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// The audit worker is stopped only after Shutdown returns, so requests
	// finishing during shutdown can still queue notices.
	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	defer stopAudit()

	g.Go(func() error {
		r.logger.Info("http server listening", "addr", r.addr.String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer stopAudit()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		r.logger.Info("http server stopped")
		return nil
	})

	if r.audit != nil {
		g.Go(func() error {
			return r.audit.Run(auditCtx)
		})
	}

	if r.pruner != nil && r.config.MaxIdle > 0 && r.config.PruneInterval > 0 {
		g.Go(func() error {
			r.runPruner(ctx)
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) runPruner(ctx context.Context) {
	ticker := time.NewTicker(r.config.PruneInterval)
	defer ticker.Stop()

	log := r.logger.With("component", "pruner")
	log.Info("pruner started", "interval", r.config.PruneInterval, "max_idle", r.config.MaxIdle)

	for {
		r.prune(ctx, log)
		select {
		case <-ctx.Done():
			log.Info("pruner stopped")
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) prune(ctx context.Context, log *slog.Logger) {
	n, err := r.pruner.PruneIdle(ctx, time.Now().Add(-r.config.MaxIdle))
	if err != nil {
		if ctx.Err() == nil {
			log.Error("prune failed", "error", err)
		}
		return
	}
	if n > 0 {
		log.Info("pruned idle sessions", "count", n)
	}
}
