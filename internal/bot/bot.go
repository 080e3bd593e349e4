package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ecobot-id/ecobot/internal/webhook"
)

// shutdownTimeout bounds how long the webhook server may drain on shutdown.
const shutdownTimeout = 10 * time.Second

// App ties the webhook server and the scheduler together and manages their
// lifecycle as one unit.
type App struct {
	logger    *slog.Logger
	server    *webhook.Server
	scheduler *Scheduler
}

// NewApp creates the application orchestrator.
func NewApp(logger *slog.Logger, server *webhook.Server, scheduler *Scheduler) *App {
	return &App{
		logger:    logger.With("component", "orchestrator"),
		server:    server,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails. Shutdown is graceful on cancellation.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			a.logger.Error("Webhook server failed", "error", err)
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping webhook server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error stopping webhook server", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.scheduler.Start(); err != nil {
			a.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Orchestrator stopped gracefully")
	return nil
}
