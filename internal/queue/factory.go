package queue

import (
	"fmt"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

// NewPublisher creates the queue publisher selected by configuration.
func NewPublisher(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) (Publisher, error) {
	switch cfg.Adapters.Queue {
	case "rabbitmq":
		logger.Info("Creating RabbitMQ publisher")
		return NewRabbitMQPublisher(&cfg.Queue.RabbitMQ, logger, metrics)

	case "sqs":
		logger.Info("Creating SQS publisher", "region", cfg.Queue.SQS.Region)
		return NewSQSPublisher(&cfg.Queue.SQS, logger, metrics)

	default:
		return nil, fmt.Errorf("unsupported queue adapter: %s", cfg.Adapters.Queue)
	}
}

// NewConsumer creates the queue consumer for the notifier worker. Only the
// RabbitMQ adapter supports consuming; SQS delivery would need a polling
// loop the worker does not carry.
func NewConsumer(cfg *config.Config, handler Handler, logger observability.Logger, metrics observability.Metrics) (Consumer, error) {
	switch cfg.Adapters.Queue {
	case "rabbitmq":
		return NewRabbitMQConsumer(&cfg.Queue.RabbitMQ, cfg.Queue.NotificationsQueue, handler, logger, metrics), nil

	default:
		return nil, fmt.Errorf("unsupported consumer adapter: %s", cfg.Adapters.Queue)
	}
}
