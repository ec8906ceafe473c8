package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Hrideshsrivastava/audit-bridge/internal/auth"
	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/database"
	"github.com/Hrideshsrivastava/audit-bridge/internal/httpapi"
	"github.com/Hrideshsrivastava/audit-bridge/internal/mailer"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability/prom"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability/stdout"
	"github.com/Hrideshsrivastava/audit-bridge/internal/queue"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
	"github.com/Hrideshsrivastava/audit-bridge/internal/scheduler"
	storagefactory "github.com/Hrideshsrivastava/audit-bridge/internal/storage/factory"
	"github.com/Hrideshsrivastava/audit-bridge/internal/upload"
)

func main() {
	cfg := loadConfiguration()

	logger := stdout.NewLogger(cfg.LogJSON)
	metrics := prom.New(cfg.ServiceName)

	logger.Info("Starting application",
		"service", cfg.ServiceName,
		"environment", cfg.Environment)
	metrics.IncrementCounter("application.starts", nil)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	blobs, err := storagefactory.New(cfg, logger, metrics)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	publisher, err := queue.NewPublisher(cfg, logger, metrics)
	if err != nil {
		log.Fatalf("Failed to initialize queue publisher: %v", err)
	}
	defer publisher.Close()

	firms := repository.NewFirmRepository(db, logger, metrics)
	clients := repository.NewClientRepository(db, logger, metrics)
	engagements := repository.NewEngagementRepository(db, logger, metrics)
	documents := repository.NewDocumentRepository(db, logger, metrics)
	emailLogs := repository.NewEmailLogRepository(db, logger, metrics)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authmw := auth.NewMiddleware(tokens, db, logger, metrics)

	pipeline := upload.NewPipeline(documents, blobs, publisher,
		cfg.Queue.NotificationsQueue, logger, metrics)

	server := httpapi.NewServer(httpapi.Deps{
		Config:    cfg,
		DB:        db,
		Logger:    logger,
		Metrics:   metrics,
		Registry:  metrics.Registry(),
		Tokens:    tokens,
		Auth:      authmw,
		Firms:     firms,
		Clients:   clients,
		Engage:    engagements,
		Documents: documents,
		Pipeline:  pipeline,
		Publisher: publisher,
	})

	sched := startScheduler(cfg, documents, emailLogs, logger, metrics)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}

	logger.Info("Application stopped")
}

func loadConfiguration() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// startScheduler wires and starts the daily reminder job when enabled.
func startScheduler(cfg *config.Config, documents *repository.DocumentRepository, emailLogs *repository.EmailLogRepository, logger observability.Logger, metrics observability.Metrics) *scheduler.Scheduler {
	if !cfg.Scheduler.Enabled {
		logger.Info("Scheduler disabled")
		return nil
	}

	mail := mailer.NewBrevo(&cfg.Mailer, logger, metrics)
	job := scheduler.NewJob(documents, emailLogs, mail, logger, metrics)
	sched := scheduler.New(&cfg.Scheduler, job, logger)

	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	return sched
}

func waitForShutdown(logger observability.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	logger.Info("Shutdown signal received", "signal", received.String())

	// A second signal forces exit.
	go func() {
		<-sig
		logger.Warn("Forced shutdown")
		os.Exit(1)
	}()
}
