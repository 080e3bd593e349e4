// Package main contains the entrypoint for the EcoBot webhook service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecobot-id/ecobot/internal/agent"
	"github.com/ecobot-id/ecobot/internal/ai"
	"github.com/ecobot-id/ecobot/internal/bot"
	"github.com/ecobot-id/ecobot/internal/bot/tasks"
	"github.com/ecobot-id/ecobot/internal/config"
	"github.com/ecobot-id/ecobot/internal/database"
	"github.com/ecobot-id/ecobot/internal/logger"
	"github.com/ecobot-id/ecobot/internal/vision"
	"github.com/ecobot-id/ecobot/internal/webhook"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components, handles graceful shutdown, and
// returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	// An empty token disables the corresponding client; the agent then serves
	// templated replies instead of failing at startup.
	var aiClient ai.Client
	if cfg.AI.Token != "" {
		aiClient = ai.NewClient(cfg.AI, log)
	} else {
		log.Warn("AI token not configured, running in templated fallback mode")
	}

	var analyzer agent.ImageAnalyzer
	if cfg.Vision.Token != "" {
		analyzer = vision.NewClient(cfg.Vision, log)
	} else {
		log.Warn("Vision token not configured, image classification disabled")
	}

	core := agent.New(store, aiClient, analyzer, cfg.AI, log)
	server := webhook.NewServer(cfg.Server, core, log)

	taskDeps := tasks.TaskDeps{
		Logger:        log,
		Store:         store,
		RetentionDays: cfg.Memory.RetentionDays,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(taskDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewApp(log, server, sched)

	log.Info("Starting EcoBot service")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully")
	time.Sleep(time.Second)
	return 0
}
