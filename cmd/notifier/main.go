package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/mailer"
	"github.com/Hrideshsrivastava/audit-bridge/internal/notifier"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability/prom"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability/stdout"
	"github.com/Hrideshsrivastava/audit-bridge/internal/queue"
)

// The notifier worker consumes the notifications queue and turns messages
// into transactional email. It runs separately from the API server so mail
// delivery never sits on a request path.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := stdout.NewLogger(cfg.LogJSON)
	metrics := prom.New(cfg.ServiceName + "_notifier")

	logger.Info("Starting notifier worker",
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
		"queue", cfg.Queue.NotificationsQueue)
	metrics.IncrementCounter("application.starts", nil)

	mail := mailer.NewBrevo(&cfg.Mailer, logger, metrics)
	worker := notifier.NewWorker(mail, &cfg.Retry, logger, metrics)

	consumer, err := queue.NewConsumer(cfg, worker, logger, metrics)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case received := <-sig:
		logger.Info("Shutdown signal received", "signal", received.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := consumer.Stop(ctx); err != nil {
			logger.Error("Failed to stop consumer", "error", err)
		}
		<-done

	case err := <-done:
		if err != nil {
			log.Fatalf("Consumer failed: %v", err)
		}
	}

	logger.Info("Notifier worker stopped")
}
