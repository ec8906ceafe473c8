package scheduler

import (
	"context"
	"time"

	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/mailer"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
)

// Reminders go out when a document is due in exactly this many days.
var reminderOffsets = []int{5, 1, 0}

// DocumentSource is the slice of the document repository the job reads.
type DocumentSource interface {
	DueSoon(ctx context.Context, daysOut []int) ([]repository.ReminderCandidate, error)
	Overdue(ctx context.Context) ([]repository.EscalationCandidate, error)
}

// EmailLog is the dedupe ledger. A (type, document, recipient) triple is
// mailed at most once, ever.
type EmailLog interface {
	Exists(ctx context.Context, emailType string, documentID int64, recipient string) (bool, error)
	Append(ctx context.Context, entry *entity.EmailLog) error
}

// Job is the daily reminder and escalation run. Two independent passes: a
// query failure aborts its own pass and the next run retries, while a
// single failed send only skips that row.
type Job struct {
	docs    DocumentSource
	log     EmailLog
	mail    mailer.Mailer
	logger  observability.Logger
	metrics observability.Metrics
}

func NewJob(docs DocumentSource, log EmailLog, mail mailer.Mailer, logger observability.Logger, metrics observability.Metrics) *Job {
	return &Job{
		docs:    docs,
		log:     log,
		mail:    mail,
		logger:  logger.WithFields(map[string]interface{}{"component": "reminder_job"}),
		metrics: metrics,
	}
}

// Run executes both passes. The returned error is the first pass failure,
// reported after both passes have had their chance.
func (j *Job) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.Info("Reminder job started")
	j.metrics.IncrementCounter("scheduler.runs", nil)

	remindErr := j.runReminders(ctx)
	escalateErr := j.runEscalations(ctx)

	j.logger.Info("Reminder job finished",
		"duration_ms", time.Since(startTime).Milliseconds())
	j.metrics.RecordHistogram("scheduler.run_duration_ms",
		float64(time.Since(startTime).Milliseconds()), nil)

	if remindErr != nil {
		return remindErr
	}
	return escalateErr
}

func (j *Job) runReminders(ctx context.Context) error {
	candidates, err := j.docs.DueSoon(ctx, reminderOffsets)
	if err != nil {
		j.logger.Error("Reminder pass aborted", "error", err)
		j.metrics.IncrementCounter("scheduler.pass_errors", map[string]string{"pass": "reminders"})
		return err
	}

	sent := 0
	for _, c := range candidates {
		if j.sendOnce(ctx, entity.EmailTypeDueReminder, c.DocumentID, c.ClientEmail, reminderEmail(c)) {
			sent++
		}
	}

	j.logger.Info("Reminder pass finished", "candidates", len(candidates), "sent", sent)
	j.metrics.IncrementCounter("scheduler.reminders_sent", nil)
	return nil
}

func (j *Job) runEscalations(ctx context.Context) error {
	candidates, err := j.docs.Overdue(ctx)
	if err != nil {
		j.logger.Error("Escalation pass aborted", "error", err)
		j.metrics.IncrementCounter("scheduler.pass_errors", map[string]string{"pass": "escalations"})
		return err
	}

	sent := 0
	for _, c := range candidates {
		if j.sendOnce(ctx, entity.EmailTypeMissedDeadlineFirm, c.DocumentID, c.FirmEmail, escalationEmail(c)) {
			sent++
		}
	}

	j.logger.Info("Escalation pass finished", "candidates", len(candidates), "sent", sent)
	j.metrics.IncrementCounter("scheduler.escalations_sent", nil)
	return nil
}

// sendOnce delivers one email unless the ledger shows it already went out.
// The ledger entry is appended after the send, so a crash in between means
// at-least-once rather than a silent miss.
func (j *Job) sendOnce(ctx context.Context, emailType string, documentID int64, recipient string, email mailer.Email) bool {
	exists, err := j.log.Exists(ctx, emailType, documentID, recipient)
	if err != nil {
		j.logger.Error("Failed to check email log, skipping row",
			"error", err,
			"document_id", documentID,
			"type", emailType)
		return false
	}
	if exists {
		j.metrics.IncrementCounter("scheduler.deduped", map[string]string{"type": emailType})
		return false
	}

	if err := j.mail.Send(ctx, email); err != nil {
		j.logger.Error("Failed to send scheduled email, skipping row",
			"error", err,
			"document_id", documentID,
			"recipient", recipient,
			"type", emailType)
		j.metrics.IncrementCounter("scheduler.send_errors", map[string]string{"type": emailType})
		return false
	}

	entry := &entity.EmailLog{
		EmailType:      emailType,
		DocumentID:     documentID,
		RecipientEmail: recipient,
	}
	if err := j.log.Append(ctx, entry); err != nil {
		// The email is out; a failed append only risks one duplicate on
		// the next run.
		j.logger.Error("Failed to record sent email",
			"error", err,
			"document_id", documentID,
			"type", emailType)
	}

	return true
}
