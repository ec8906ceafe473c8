package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

// SQSPublisher publishes messages to AWS SQS queues.
type SQSPublisher struct {
	client  *sqs.Client
	logger  observability.Logger
	metrics observability.Metrics

	// Queue URL lookups are cached for the life of the publisher.
	queueURLs map[string]string
}

func NewSQSPublisher(cfg *config.SQSConfig, logger observability.Logger, metrics observability.Metrics) (*SQSPublisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		logger.Error("Failed to load AWS config", "error", err)
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	logger.Info("SQS publisher initialized", "region", cfg.Region)

	return &SQSPublisher{
		client:    sqs.NewFromConfig(awsCfg),
		logger:    logger.WithFields(map[string]interface{}{"component": "queue.sqs"}),
		metrics:   metrics,
		queueURLs: make(map[string]string),
	}, nil
}

func (q *SQSPublisher) getQueueURL(ctx context.Context, queueName string) (string, error) {
	if url, ok := q.queueURLs[queueName]; ok {
		return url, nil
	}

	result, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		return "", fmt.Errorf("get queue URL for %s: %w", queueName, err)
	}

	q.queueURLs[queueName] = *result.QueueUrl
	return *result.QueueUrl, nil
}

func (q *SQSPublisher) Publish(ctx context.Context, target string, msg *Message) error {
	startTime := time.Now()
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration",
			time.Since(startTime).Seconds(),
			map[string]string{"target": target})
	}()

	queueURL, err := q.getQueueURL(ctx, target)
	if err != nil {
		q.logger.Error("Failed to get queue URL", "error", err, "queue", target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": target, "error": "queue_url_failed"})
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		q.logger.Error("Failed to marshal message", "error", err)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": target, "error": "marshal_failed"})
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		q.logger.Error("Failed to send message", "error", err, "target", target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": target, "error": "send_failed"})
		return fmt.Errorf("send message: %w", err)
	}

	q.logger.Info("Message sent", "target", target, "type", msg.Type, "size", len(body))
	q.metrics.IncrementCounter("queue.publish.success",
		map[string]string{"target": target})

	return nil
}

func (q *SQSPublisher) Close() error {
	return nil
}
