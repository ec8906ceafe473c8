package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/mailer"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/queue"
)

// Worker turns queued notification messages into email. It implements
// queue.Handler; the consumer drives it.
//
// Delivery failures are retried in-process with exponential backoff before
// the message is handed back to the queue. A payload that cannot be decoded
// is reported as ErrDropMessage since redelivery can never fix it.
type Worker struct {
	mail    mailer.Mailer
	retry   *config.RetryConfig
	logger  observability.Logger
	metrics observability.Metrics
}

func NewWorker(mail mailer.Mailer, retry *config.RetryConfig, logger observability.Logger, metrics observability.Metrics) *Worker {
	return &Worker{
		mail:    mail,
		retry:   retry,
		logger:  logger.WithFields(map[string]interface{}{"component": "notifier_worker"}),
		metrics: metrics,
	}
}

func (w *Worker) Handle(ctx context.Context, msg *queue.Message) error {
	startTime := time.Now()
	w.metrics.IncrementCounter("notifier.messages", map[string]string{"type": msg.Type})

	email, err := w.buildEmail(msg)
	if err != nil {
		w.metrics.IncrementCounter("notifier.bad_payloads", map[string]string{"type": msg.Type})
		return fmt.Errorf("%w: %v", queue.ErrDropMessage, err)
	}

	if err := w.sendWithRetry(ctx, email); err != nil {
		w.metrics.IncrementCounter("notifier.failures", map[string]string{"type": msg.Type})
		return err
	}

	w.logger.Info("Notification delivered",
		"type", msg.Type,
		"to", email.ToEmail,
		"duration_ms", time.Since(startTime).Milliseconds())
	w.metrics.IncrementCounter("notifier.delivered", map[string]string{"type": msg.Type})

	return nil
}

func (w *Worker) buildEmail(msg *queue.Message) (mailer.Email, error) {
	switch msg.Type {
	case TaskDocumentSubmitted:
		var p DocumentSubmittedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return mailer.Email{}, fmt.Errorf("decode submitted payload: %v", err)
		}
		if p.FirmEmail == "" {
			return mailer.Email{}, fmt.Errorf("submitted payload missing firm email")
		}
		return submittedEmail(p), nil

	case TaskDocumentRejected:
		var p DocumentRejectedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return mailer.Email{}, fmt.Errorf("decode rejected payload: %v", err)
		}
		if p.ClientEmail == "" {
			return mailer.Email{}, fmt.Errorf("rejected payload missing client email")
		}
		return rejectedEmail(p), nil

	default:
		return mailer.Email{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (w *Worker) sendWithRetry(ctx context.Context, email mailer.Email) error {
	var lastErr error

	for attempt := 0; attempt <= w.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := w.backoff(attempt - 1)
			w.logger.Warn("Retrying notification",
				"to", email.ToEmail,
				"attempt", attempt,
				"backoff_ms", backoff.Milliseconds())
			w.metrics.IncrementCounter("notifier.retries", nil)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = w.mail.Send(ctx, email)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", w.retry.MaxAttempts, lastErr)
}

func (w *Worker) backoff(attempt int) time.Duration {
	backoff := float64(w.retry.InitialBackoff) * math.Pow(w.retry.BackoffMultiplier, float64(attempt))
	if backoff > float64(w.retry.MaxBackoff) {
		backoff = float64(w.retry.MaxBackoff)
	}
	return time.Duration(backoff)
}
