package scheduler

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/mailer"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
)

type fakeDocs struct {
	dueSoon    []repository.ReminderCandidate
	dueSoonErr error
	overdue    []repository.EscalationCandidate
	overdueErr error

	dueSoonCalls int
	overdueCalls int
}

func (f *fakeDocs) DueSoon(ctx context.Context, daysOut []int) ([]repository.ReminderCandidate, error) {
	f.dueSoonCalls++
	return f.dueSoon, f.dueSoonErr
}

func (f *fakeDocs) Overdue(ctx context.Context) ([]repository.EscalationCandidate, error) {
	f.overdueCalls++
	return f.overdue, f.overdueErr
}

type fakeEmailLog struct {
	sent      map[string]bool
	existsErr error
	appendErr error
	appended  []*entity.EmailLog
}

func logKey(emailType string, documentID int64, recipient string) string {
	return emailType + "|" + recipient + "|" + strconv.FormatInt(documentID, 10)
}

func (f *fakeEmailLog) Exists(ctx context.Context, emailType string, documentID int64, recipient string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.sent[logKey(emailType, documentID, recipient)], nil
}

func (f *fakeEmailLog) Append(ctx context.Context, entry *entity.EmailLog) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if f.sent == nil {
		f.sent = map[string]bool{}
	}
	f.sent[logKey(entry.EmailType, entry.DocumentID, entry.RecipientEmail)] = true
	f.appended = append(f.appended, entry)
	return nil
}

type fakeMailer struct {
	sent    []mailer.Email
	failFor map[string]error
}

func (f *fakeMailer) Send(ctx context.Context, email mailer.Email) error {
	if err := f.failFor[email.ToEmail]; err != nil {
		return err
	}
	f.sent = append(f.sent, email)
	return nil
}

func newTestJob(docs *fakeDocs, log *fakeEmailLog, mail *fakeMailer) *Job {
	return NewJob(docs, log, mail, observability.NopLogger{}, observability.NopMetrics{})
}

func reminder(docID int64, email string) repository.ReminderCandidate {
	return repository.ReminderCandidate{
		DocumentID:   docID,
		DocumentName: "Bank Statements",
		DueDate:      time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		DaysLeft:     5,
		ClientName:   "Acme Ltd",
		ClientEmail:  email,
	}
}

func escalation(docID int64, email string) repository.EscalationCandidate {
	return repository.EscalationCandidate{
		DocumentID:   docID,
		DocumentName: "Trial Balance",
		DueDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ClientName:   "Acme Ltd",
		FirmName:     "Sharp & Co",
		FirmEmail:    email,
	}
}

func TestJobRun(t *testing.T) {
	t.Run("sends and records both passes", func(t *testing.T) {
		docs := &fakeDocs{
			dueSoon: []repository.ReminderCandidate{reminder(1, "client@acme.example.com")},
			overdue: []repository.EscalationCandidate{escalation(2, "audit@sharp.example.com")},
		}
		log := &fakeEmailLog{}
		mail := &fakeMailer{}

		err := newTestJob(docs, log, mail).Run(context.Background())

		require.NoError(t, err)
		require.Len(t, mail.sent, 2)
		assert.Equal(t, "client@acme.example.com", mail.sent[0].ToEmail)
		assert.Equal(t, "audit@sharp.example.com", mail.sent[1].ToEmail)

		require.Len(t, log.appended, 2)
		assert.Equal(t, entity.EmailTypeDueReminder, log.appended[0].EmailType)
		assert.Equal(t, entity.EmailTypeMissedDeadlineFirm, log.appended[1].EmailType)
	})

	t.Run("already-logged rows are suppressed", func(t *testing.T) {
		docs := &fakeDocs{
			dueSoon: []repository.ReminderCandidate{reminder(1, "client@acme.example.com")},
		}
		log := &fakeEmailLog{sent: map[string]bool{
			logKey(entity.EmailTypeDueReminder, 1, "client@acme.example.com"): true,
		}}
		mail := &fakeMailer{}

		err := newTestJob(docs, log, mail).Run(context.Background())

		require.NoError(t, err)
		assert.Empty(t, mail.sent)
	})

	t.Run("rerun sends nothing new", func(t *testing.T) {
		docs := &fakeDocs{
			dueSoon: []repository.ReminderCandidate{reminder(1, "client@acme.example.com")},
			overdue: []repository.EscalationCandidate{escalation(2, "audit@sharp.example.com")},
		}
		log := &fakeEmailLog{}
		mail := &fakeMailer{}
		job := newTestJob(docs, log, mail)

		require.NoError(t, job.Run(context.Background()))
		require.NoError(t, job.Run(context.Background()))

		assert.Len(t, mail.sent, 2)
	})

	t.Run("one failed send does not stop the pass", func(t *testing.T) {
		docs := &fakeDocs{
			dueSoon: []repository.ReminderCandidate{
				reminder(1, "down@acme.example.com"),
				reminder(2, "up@acme.example.com"),
			},
		}
		log := &fakeEmailLog{}
		mail := &fakeMailer{failFor: map[string]error{
			"down@acme.example.com": errors.New("mailbox unavailable"),
		}}

		err := newTestJob(docs, log, mail).Run(context.Background())

		require.NoError(t, err)
		require.Len(t, mail.sent, 1)
		assert.Equal(t, "up@acme.example.com", mail.sent[0].ToEmail)

		// Only the delivered email is recorded; the failed row stays
		// eligible for the next run.
		require.Len(t, log.appended, 1)
		assert.Equal(t, int64(2), log.appended[0].DocumentID)
	})

	t.Run("reminder query failure still runs escalations", func(t *testing.T) {
		docs := &fakeDocs{
			dueSoonErr: errors.New("connection reset"),
			overdue:    []repository.EscalationCandidate{escalation(2, "audit@sharp.example.com")},
		}
		log := &fakeEmailLog{}
		mail := &fakeMailer{}

		err := newTestJob(docs, log, mail).Run(context.Background())

		require.Error(t, err)
		assert.Equal(t, 1, docs.overdueCalls)
		require.Len(t, mail.sent, 1)
		assert.Equal(t, "audit@sharp.example.com", mail.sent[0].ToEmail)
	})

	t.Run("ledger check failure skips the row without sending", func(t *testing.T) {
		docs := &fakeDocs{
			dueSoon: []repository.ReminderCandidate{reminder(1, "client@acme.example.com")},
		}
		log := &fakeEmailLog{existsErr: errors.New("connection reset")}
		mail := &fakeMailer{}

		err := newTestJob(docs, log, mail).Run(context.Background())

		require.NoError(t, err)
		assert.Empty(t, mail.sent)
	})
}
