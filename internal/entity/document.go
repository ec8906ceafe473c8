package entity

import (
	"errors"
	"strings"
	"time"
)

// DocumentStatus is the lifecycle state of a requested document.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusSubmitted DocumentStatus = "submitted"
	StatusVerified  DocumentStatus = "verified"
	StatusRejected  DocumentStatus = "rejected"
)

var (
	// ErrInvalidTransition is returned when a requested status change is
	// not permitted from the document's current state.
	ErrInvalidTransition = errors.New("invalid document status transition")

	// ErrReasonRequired is returned when a rejection carries no reason.
	ErrReasonRequired = errors.New("rejection reason required")
)

// Document is one required item of an audit engagement. Documents are
// created in bulk from the audit-type template and never deleted; only
// status, file reference, due date and rejection reason mutate.
//
// Invariants: RejectionReason is set iff Status is rejected; FileURL is set
// iff Status is submitted or verified.
type Document struct {
	ID              int64          `db:"id"`
	EngagementID    int64          `db:"client_audit_id"`
	FirmID          int64          `db:"firm_id"`
	Name            string         `db:"document_name"`
	Status          DocumentStatus `db:"status"`
	DueDate         *time.Time     `db:"due_date"`
	FileURL         *string        `db:"file_url"`
	RejectionReason *string        `db:"rejection_reason"`
	UploadedAt      *time.Time     `db:"uploaded_at"`
	CreatedAt       time.Time      `db:"created_at"`
}

// CanSubmit reports whether an upload is allowed in the current state.
func (d *Document) CanSubmit() bool {
	return d.Status == StatusPending || d.Status == StatusRejected
}

// Submit records an uploaded file and moves the document to submitted.
// Allowed from pending and rejected; a prior rejection reason is cleared.
func (d *Document) Submit(fileURL string, now time.Time) error {
	if !d.CanSubmit() {
		return ErrInvalidTransition
	}

	d.Status = StatusSubmitted
	d.FileURL = &fileURL
	d.UploadedAt = &now
	d.RejectionReason = nil
	return nil
}

// Verify accepts a submitted document. Verified is terminal.
func (d *Document) Verify() error {
	if d.Status != StatusSubmitted {
		return ErrInvalidTransition
	}

	d.Status = StatusVerified
	d.RejectionReason = nil
	return nil
}

// Reject sends a submitted document back to the client with a reason.
// The stale file reference is dropped so the next upload starts clean.
func (d *Document) Reject(reason string) error {
	if d.Status != StatusSubmitted {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}

	d.Status = StatusRejected
	d.RejectionReason = &reason
	d.FileURL = nil
	d.UploadedAt = nil
	return nil
}

// IsOverdue reports whether the document is still outstanding past its due
// date. Submitted and verified documents are never overdue.
func (d *Document) IsOverdue(today time.Time) bool {
	if d.DueDate == nil {
		return false
	}
	if d.Status != StatusPending && d.Status != StatusRejected {
		return false
	}
	return d.DueDate.Before(today.Truncate(24 * time.Hour))
}
