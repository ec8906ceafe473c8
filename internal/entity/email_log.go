package entity

import "time"

// Email event types recorded in the notification log.
const (
	EmailTypeDueReminder        = "DUE_REMINDER"
	EmailTypeMissedDeadlineFirm = "MISSED_DEADLINE_FIRM"
)

// EmailLog records one sent notification as an (event type, document,
// recipient) triple. The table is append-only: the scheduler consults it to
// suppress duplicate sends, so reruns on the same day are idempotent.
type EmailLog struct {
	ID             int64     `db:"id"`
	EmailType      string    `db:"email_type"`
	DocumentID     int64     `db:"document_id"`
	RecipientEmail string    `db:"recipient_email"`
	SentAt         time.Time `db:"sent_at"`
}
