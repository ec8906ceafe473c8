package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/mailer"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/queue"
)

type scriptedMailer struct {
	failures int
	calls    int
	sent     []mailer.Email
}

func (m *scriptedMailer) Send(ctx context.Context, email mailer.Email) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("smtp relay unavailable")
	}
	m.sent = append(m.sent, email)
	return nil
}

func newTestWorker(mail mailer.Mailer) *Worker {
	retry := &config.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	return NewWorker(mail, retry, observability.NopLogger{}, observability.NopMetrics{})
}

func submittedMessage(t *testing.T, payload DocumentSubmittedPayload) *queue.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Message{ID: "msg-1", Type: TaskDocumentSubmitted, Payload: raw}
}

func TestWorkerHandle(t *testing.T) {
	t.Run("submitted notification goes to the firm", func(t *testing.T) {
		mail := &scriptedMailer{}
		worker := newTestWorker(mail)

		msg := submittedMessage(t, DocumentSubmittedPayload{
			DocumentID:   101,
			DocumentName: "Trial Balance",
			ClientName:   "Acme Ltd",
			FirmName:     "Sharp & Co",
			FirmEmail:    "audit@sharp.example.com",
		})

		require.NoError(t, worker.Handle(context.Background(), msg))
		require.Len(t, mail.sent, 1)
		assert.Equal(t, "audit@sharp.example.com", mail.sent[0].ToEmail)
		assert.Equal(t, "Sharp & Co", mail.sent[0].ToName)
		assert.Contains(t, mail.sent[0].HTMLBody, "Trial Balance")
	})

	t.Run("rejected notification goes to the client", func(t *testing.T) {
		mail := &scriptedMailer{}
		worker := newTestWorker(mail)

		raw, err := json.Marshal(DocumentRejectedPayload{
			DocumentID:   101,
			DocumentName: "Trial Balance",
			Reason:       "Wrong fiscal year",
			ClientName:   "Acme Ltd",
			ClientEmail:  "client@acme.example.com",
		})
		require.NoError(t, err)

		msg := &queue.Message{ID: "msg-2", Type: TaskDocumentRejected, Payload: raw}

		require.NoError(t, worker.Handle(context.Background(), msg))
		require.Len(t, mail.sent, 1)
		assert.Equal(t, "client@acme.example.com", mail.sent[0].ToEmail)
		assert.Contains(t, mail.sent[0].HTMLBody, "Wrong fiscal year")
	})

	t.Run("transient failure is retried in process", func(t *testing.T) {
		mail := &scriptedMailer{failures: 2}
		worker := newTestWorker(mail)

		msg := submittedMessage(t, DocumentSubmittedPayload{
			FirmEmail: "audit@sharp.example.com",
		})

		require.NoError(t, worker.Handle(context.Background(), msg))
		assert.Equal(t, 3, mail.calls)
		assert.Len(t, mail.sent, 1)
	})

	t.Run("exhausted retries hand the message back to the queue", func(t *testing.T) {
		mail := &scriptedMailer{failures: 10}
		worker := newTestWorker(mail)

		msg := submittedMessage(t, DocumentSubmittedPayload{
			FirmEmail: "audit@sharp.example.com",
		})

		err := worker.Handle(context.Background(), msg)

		require.Error(t, err)
		assert.NotErrorIs(t, err, queue.ErrDropMessage)
		assert.Contains(t, err.Error(), "max retries")
		assert.Equal(t, 3, mail.calls)
	})

	t.Run("undecodable payload is dropped", func(t *testing.T) {
		mail := &scriptedMailer{}
		worker := newTestWorker(mail)

		msg := &queue.Message{ID: "msg-3", Type: TaskDocumentSubmitted, Payload: []byte("{not json")}

		err := worker.Handle(context.Background(), msg)

		assert.ErrorIs(t, err, queue.ErrDropMessage)
		assert.Zero(t, mail.calls)
	})

	t.Run("missing recipient is dropped", func(t *testing.T) {
		mail := &scriptedMailer{}
		worker := newTestWorker(mail)

		msg := submittedMessage(t, DocumentSubmittedPayload{DocumentName: "Trial Balance"})

		err := worker.Handle(context.Background(), msg)

		assert.ErrorIs(t, err, queue.ErrDropMessage)
		assert.Zero(t, mail.calls)
	})

	t.Run("unknown message type is dropped", func(t *testing.T) {
		mail := &scriptedMailer{}
		worker := newTestWorker(mail)

		msg := &queue.Message{ID: "msg-4", Type: "document_archived", Payload: []byte("{}")}

		err := worker.Handle(context.Background(), msg)

		assert.ErrorIs(t, err, queue.ErrDropMessage)
		assert.Zero(t, mail.calls)
	})

	t.Run("cancelled context stops the retry loop", func(t *testing.T) {
		mail := &scriptedMailer{failures: 10}
		worker := newTestWorker(mail)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		msg := submittedMessage(t, DocumentSubmittedPayload{
			FirmEmail: "audit@sharp.example.com",
		})

		err := worker.Handle(ctx, msg)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, mail.calls)
	})
}
