package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

// RabbitMQPublisher publishes messages to durable RabbitMQ queues.
type RabbitMQPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  observability.Logger
	metrics observability.Metrics
	cfg     *config.RabbitMQConfig
}

func NewRabbitMQPublisher(cfg *config.RabbitMQConfig, logger observability.Logger, metrics observability.Metrics) (*RabbitMQPublisher, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("Failed to create channel", "error", err)
		return nil, fmt.Errorf("create channel: %w", err)
	}

	logger.Info("RabbitMQ publisher initialized")

	return &RabbitMQPublisher{
		conn:    conn,
		channel: channel,
		logger:  logger.WithFields(map[string]interface{}{"component": "queue.rabbitmq"}),
		metrics: metrics,
		cfg:     cfg,
	}, nil
}

func (q *RabbitMQPublisher) Publish(ctx context.Context, target string, msg *Message) error {
	startTime := time.Now()
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration",
			time.Since(startTime).Seconds(),
			map[string]string{"target": target})
	}()

	body, err := json.Marshal(msg)
	if err != nil {
		q.logger.Error("Failed to marshal message", "error", err)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": target, "error": "marshal_failed"})
		return fmt.Errorf("marshal message: %w", err)
	}

	// Idempotent; creates the queue if it does not exist yet.
	_, err = q.channel.QueueDeclare(
		target,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		q.logger.Error("Failed to declare queue", "error", err, "queue", target)
		return fmt.Errorf("declare queue: %w", err)
	}

	err = q.channel.PublishWithContext(
		ctx,
		"",     // default exchange
		target, // routing key is the queue name
		false,  // mandatory
		false,  // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			MessageId:    msg.ID,
			Type:         msg.Type,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		q.logger.Error("Failed to publish message", "error", err, "target", target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": target, "error": "publish_failed"})
		return fmt.Errorf("publish message: %w", err)
	}

	q.logger.Info("Message published", "target", target, "type", msg.Type, "size", len(body))
	q.metrics.IncrementCounter("queue.publish.success",
		map[string]string{"target": target})

	return nil
}

func (q *RabbitMQPublisher) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
