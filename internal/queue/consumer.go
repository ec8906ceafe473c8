package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

// RabbitMQConsumer consumes messages from a durable queue with manual
// acknowledgement. Failed messages are requeued once; a redelivered message
// that fails again is dropped.
type RabbitMQConsumer struct {
	handler   Handler
	logger    observability.Logger
	metrics   observability.Metrics
	cfg       *config.RabbitMQConfig
	queueName string
	conn      *amqp091.Connection
	channel   *amqp091.Channel
}

func NewRabbitMQConsumer(cfg *config.RabbitMQConfig, queueName string, handler Handler, logger observability.Logger, metrics observability.Metrics) *RabbitMQConsumer {
	return &RabbitMQConsumer{
		handler:   handler,
		logger:    logger.WithFields(map[string]interface{}{"component": "consumer.rabbitmq"}),
		metrics:   metrics,
		cfg:       cfg,
		queueName: queueName,
	}
}

// Start begins consuming. It blocks until the channel is closed by Stop or
// by a connection failure.
func (c *RabbitMQConsumer) Start() error {
	conn, err := amqp091.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	c.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.channel = ch

	if c.cfg.PrefetchCount > 0 {
		if err := ch.Qos(c.cfg.PrefetchCount, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("set QoS: %w", err)
		}
	}

	q, err := ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("Consumer started",
		"queue", c.queueName,
		"prefetch", c.cfg.PrefetchCount)
	c.metrics.IncrementCounter("consumer.starts", nil)

	for msg := range msgs {
		c.processMessage(msg)
	}

	return nil
}

func (c *RabbitMQConsumer) processMessage(delivery amqp091.Delivery) {
	startTime := time.Now()

	ctx := context.Background()
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var msg Message
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		// Garbage will never parse; ack and drop.
		c.logger.Error("Failed to decode message, dropping",
			"error", err,
			"delivery_tag", delivery.DeliveryTag)
		c.metrics.IncrementCounter("consumer.dropped", map[string]string{"reason": "decode"})
		if err := delivery.Ack(false); err != nil {
			c.logger.Error("Failed to ack dropped message", "error", err)
		}
		return
	}
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("rmq-%d", delivery.DeliveryTag)
	}

	c.logger.Info("Processing message",
		"message_id", msg.ID,
		"type", msg.Type,
		"redelivered", delivery.Redelivered)
	c.metrics.IncrementCounter("consumer.messages", nil)

	err := c.handler.Handle(ctx, &msg)

	switch {
	case err == nil:
		if err := delivery.Ack(false); err != nil {
			c.logger.Error("Failed to ack message", "id", msg.ID, "error", err)
		}
		c.logger.Info("Message processed",
			"id", msg.ID,
			"duration_ms", time.Since(startTime).Milliseconds())
		c.metrics.IncrementCounter("consumer.success", nil)

	case errors.Is(err, ErrDropMessage):
		if err := delivery.Ack(false); err != nil {
			c.logger.Error("Failed to ack dropped message", "id", msg.ID, "error", err)
		}
		c.logger.Error("Message permanently unprocessable, dropping",
			"id", msg.ID,
			"error", err)
		c.metrics.IncrementCounter("consumer.dropped", map[string]string{"reason": "handler"})

	default:
		requeue := !delivery.Redelivered
		if err := delivery.Nack(false, requeue); err != nil {
			c.logger.Error("Failed to nack message", "id", msg.ID, "error", err)
		}
		c.logger.Error("Message processing failed",
			"id", msg.ID,
			"error", err,
			"requeued", requeue)
		c.metrics.IncrementCounter("consumer.failure", nil)
	}

	c.metrics.RecordHistogram("consumer.duration_ms",
		float64(time.Since(startTime).Milliseconds()), nil)
}

// Stop closes the channel and connection, which unblocks Start.
func (c *RabbitMQConsumer) Stop(ctx context.Context) error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.logger.Info("Consumer stopped")
	return nil
}
