package repository

import (
	"time"

	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
)

// ClientProgress is one row of the firm dashboard.
type ClientProgress struct {
	ClientID           int64  `db:"client_id" json:"clientId"`
	Name               string `db:"client_name" json:"name"`
	Email              string `db:"client_email" json:"email"`
	AuditType          string `db:"audit_type" json:"auditType"`
	FinancialYear      string `db:"financial_year" json:"financialYear"`
	TotalDocuments     int    `db:"total_documents" json:"totalDocuments"`
	SubmittedDocuments int    `db:"submitted_documents" json:"submittedDocuments"`
	VerifiedDocuments  int    `db:"verified_documents" json:"verifiedDocuments"`
	OverdueDocuments   int    `db:"overdue_documents" json:"overdueDocuments"`

	// Derived, not scanned.
	ProgressPercentage int `db:"-" json:"progressPercentage"`
}

// EngagementProgress is the client-facing dashboard summary.
type EngagementProgress struct {
	AuditType          string `db:"audit_type" json:"auditType"`
	FinancialYear      string `db:"financial_year" json:"financialYear"`
	TotalDocuments     int    `db:"total_documents" json:"totalDocuments"`
	SubmittedDocuments int    `db:"submitted_documents" json:"submittedDocuments"`
	OverdueDocuments   int    `db:"overdue_documents" json:"overdueDocuments"`

	ProgressPercentage int `db:"-" json:"progressPercentage"`
}

// DocumentRow is one document as listed for either principal kind.
type DocumentRow struct {
	DocumentID    int64                 `db:"document_id" json:"documentId"`
	Name          string                `db:"document_name" json:"name"`
	Status        entity.DocumentStatus `db:"status" json:"status"`
	DueDate       *time.Time            `db:"due_date" json:"dueDate"`
	UploadedAt    *time.Time            `db:"uploaded_at" json:"uploadedAt"`
	FileURL       *string               `db:"file_url" json:"fileUrl"`
	FinancialYear string                `db:"financial_year" json:"financialYear"`
	AuditType     string                `db:"audit_type" json:"auditType"`
}

// ClientDetail is the firm's view of one client and its documents.
type ClientDetail struct {
	ClientName    string        `json:"clientName"`
	Email         string        `json:"email"`
	AuditType     string        `json:"auditType"`
	FinancialYear string        `json:"financialYear"`
	Documents     []DocumentRow `json:"documents"`
}

// UploadTarget is the document a client is uploading to, joined with the
// identifiers and addresses the upload pipeline needs for the object key
// and the firm notification.
type UploadTarget struct {
	entity.Document

	ClientID   int64  `db:"client_id"`
	ClientName string `db:"client_name"`
	FirmName   string `db:"firm_name"`
	FirmEmail  string `db:"firm_email"`
}

// FirmDocument is a document as seen by the owning firm, joined with the
// client identity for decision notifications.
type FirmDocument struct {
	entity.Document

	ClientName  string `db:"client_name"`
	ClientEmail string `db:"client_email"`
}

// ReminderCandidate is a document whose client should receive a due-date
// reminder.
type ReminderCandidate struct {
	DocumentID   int64     `db:"document_id"`
	DocumentName string    `db:"document_name"`
	DueDate      time.Time `db:"due_date"`
	DaysLeft     int       `db:"days_left"`
	ClientName   string    `db:"client_name"`
	ClientEmail  string    `db:"client_email"`
}

// EscalationCandidate is an overdue document whose firm should be notified.
type EscalationCandidate struct {
	DocumentID   int64     `db:"document_id"`
	DocumentName string    `db:"document_name"`
	DueDate      time.Time `db:"due_date"`
	ClientName   string    `db:"client_name"`
	FirmName     string    `db:"firm_name"`
	FirmEmail    string    `db:"firm_email"`
}
