package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Hrideshsrivastava/audit-bridge/internal/database"
	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

// DocumentRepository persists documents and enforces both tenant scoping and
// the lifecycle preconditions. Status transitions are conditional updates:
// when the precondition no longer holds the statement matches no row and the
// caller gets ErrConflict, so concurrent verify/reject attempts cannot race
// silently.
type DocumentRepository struct {
	db      *sqlx.DB
	logger  observability.Logger
	metrics observability.Metrics
	qb      squirrel.StatementBuilderType
}

func NewDocumentRepository(db *sqlx.DB, logger observability.Logger, metrics observability.Metrics) *DocumentRepository {
	return &DocumentRepository{
		db:      db,
		logger:  logger,
		metrics: metrics,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *DocumentRepository) q(sess *tenancy.Session) database.Querier {
	if sess != nil && sess.Tx != nil {
		return sess.Tx
	}
	return r.db
}

// scopePredicate returns the ownership condition for client_documents rows.
// Firms own documents directly via firm_id; clients own them through their
// engagement.
func scopePredicate(scope tenancy.Scope) squirrel.Sqlizer {
	if scope.Kind == tenancy.KindFirm {
		return squirrel.Eq{"firm_id": scope.FirmID}
	}
	return squirrel.Expr(
		"client_audit_id IN (SELECT id FROM client_audits WHERE client_id = ?)",
		scope.ClientID,
	)
}

// UploadTarget loads the document a client wants to upload to, with the
// engagement/firm context the pipeline needs. Returns ErrNotFound when the
// document is missing or outside the client's scope.
func (r *DocumentRepository) UploadTarget(ctx context.Context, sess *tenancy.Session, documentID int64) (*UploadTarget, error) {
	r.metrics.IncrementCounter("repository.documents.upload_target", nil)

	const sqlQuery = `
		SELECT
			cd.id, cd.client_audit_id, cd.firm_id, cd.document_name, cd.status,
			cd.due_date, cd.file_url, cd.rejection_reason, cd.uploaded_at, cd.created_at,
			ca.client_id,
			c.name AS client_name,
			f.name AS firm_name,
			f.email AS firm_email
		FROM client_documents cd
		JOIN client_audits ca ON ca.id = cd.client_audit_id
		JOIN clients c ON c.id = ca.client_id
		JOIN firms f ON f.id = ca.firm_id
		WHERE cd.id = $1 AND ca.client_id = $2`

	var target UploadTarget
	err := r.q(sess).GetContext(ctx, &target, sqlQuery, documentID, sess.Scope.ClientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load upload target", "error", err, "document_id", documentID)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return nil, fmt.Errorf("load upload target: %w", err)
	}

	return &target, nil
}

// FirmDocument loads a document visible to the session's firm, joined with
// the owning client's identity.
func (r *DocumentRepository) FirmDocument(ctx context.Context, sess *tenancy.Session, documentID int64) (*FirmDocument, error) {
	r.metrics.IncrementCounter("repository.documents.firm_document", nil)

	const sqlQuery = `
		SELECT
			cd.id, cd.client_audit_id, cd.firm_id, cd.document_name, cd.status,
			cd.due_date, cd.file_url, cd.rejection_reason, cd.uploaded_at, cd.created_at,
			c.name AS client_name,
			c.email AS client_email
		FROM client_documents cd
		JOIN client_audits ca ON ca.id = cd.client_audit_id
		JOIN clients c ON c.id = ca.client_id
		WHERE cd.id = $1 AND cd.firm_id = $2`

	var doc FirmDocument
	err := r.q(sess).GetContext(ctx, &doc, sqlQuery, documentID, sess.Scope.FirmID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load firm document", "error", err, "document_id", documentID)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return nil, fmt.Errorf("load firm document: %w", err)
	}

	return &doc, nil
}

// MarkSubmitted records an upload: file reference and timestamp set, status
// submitted, any prior rejection reason cleared. The update only matches a
// document still in pending or rejected, so an upload racing a verification
// surfaces as ErrConflict instead of clobbering terminal state.
func (r *DocumentRepository) MarkSubmitted(ctx context.Context, sess *tenancy.Session, documentID int64, fileURL string, now time.Time) error {
	r.metrics.IncrementCounter("repository.documents.mark_submitted", nil)

	query := r.qb.Update("client_documents").
		Set("file_url", fileURL).
		Set("uploaded_at", now).
		Set("status", entity.StatusSubmitted).
		Set("rejection_reason", nil).
		Where(squirrel.Eq{"id": documentID}).
		Where(squirrel.Eq{"status": []entity.DocumentStatus{entity.StatusPending, entity.StatusRejected}}).
		Where(scopePredicate(sess.Scope))

	return r.execTransition(ctx, sess, query, "mark_submitted")
}

// Verify moves a submitted document to its terminal verified state.
func (r *DocumentRepository) Verify(ctx context.Context, sess *tenancy.Session, documentID int64) error {
	r.metrics.IncrementCounter("repository.documents.verify", nil)

	query := r.qb.Update("client_documents").
		Set("status", entity.StatusVerified).
		Set("rejection_reason", nil).
		Where(squirrel.Eq{"id": documentID}).
		Where(squirrel.Eq{"status": entity.StatusSubmitted}).
		Where(scopePredicate(sess.Scope))

	return r.execTransition(ctx, sess, query, "verify")
}

// Reject sends a submitted document back with a reason and drops the stale
// file reference.
func (r *DocumentRepository) Reject(ctx context.Context, sess *tenancy.Session, documentID int64, reason string) error {
	r.metrics.IncrementCounter("repository.documents.reject", nil)

	query := r.qb.Update("client_documents").
		Set("status", entity.StatusRejected).
		Set("rejection_reason", reason).
		Set("file_url", nil).
		Set("uploaded_at", nil).
		Where(squirrel.Eq{"id": documentID}).
		Where(squirrel.Eq{"status": entity.StatusSubmitted}).
		Where(scopePredicate(sess.Scope))

	return r.execTransition(ctx, sess, query, "reject")
}

// SetDueDate mutates the due date independently of status. Firm action only;
// pass nil to clear.
func (r *DocumentRepository) SetDueDate(ctx context.Context, sess *tenancy.Session, documentID int64, due *time.Time) error {
	r.metrics.IncrementCounter("repository.documents.set_due_date", nil)

	query := r.qb.Update("client_documents").
		Set("due_date", due).
		Where(squirrel.Eq{"id": documentID}).
		Where(scopePredicate(sess.Scope))

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.q(sess).ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		r.logger.Error("Failed to set due date", "error", err, "document_id", documentID)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return fmt.Errorf("set due date: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// execTransition runs a conditional status update. Zero rows affected means
// the document either does not exist in scope or is no longer in the
// required state; the caller disambiguates by fetching first.
func (r *DocumentRepository) execTransition(ctx context.Context, sess *tenancy.Session, query squirrel.UpdateBuilder, op string) error {
	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.q(sess).ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		r.logger.Error("Failed to update document", "error", err, "operation", op)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrConflict
	}

	return nil
}

// ListForClient returns the session client's documents ordered by due date.
func (r *DocumentRepository) ListForClient(ctx context.Context, sess *tenancy.Session) ([]DocumentRow, error) {
	r.metrics.IncrementCounter("repository.documents.list_for_client", nil)

	const sqlQuery = `
		SELECT
			cd.id AS document_id,
			cd.document_name,
			cd.status,
			cd.due_date,
			cd.uploaded_at,
			cd.file_url,
			ca.financial_year,
			at.name AS audit_type
		FROM client_documents cd
		JOIN client_audits ca ON ca.id = cd.client_audit_id
		JOIN audit_types at ON at.id = ca.audit_type_id
		WHERE ca.client_id = $1
		ORDER BY cd.due_date ASC NULLS LAST, cd.id ASC`

	var rows []DocumentRow
	if err := r.q(sess).SelectContext(ctx, &rows, sqlQuery, sess.Scope.ClientID); err != nil {
		r.logger.Error("Failed to list client documents", "error", err)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return nil, fmt.Errorf("list client documents: %w", err)
	}

	return rows, nil
}

// FirmDashboard aggregates per-client progress for the session's firm.
func (r *DocumentRepository) FirmDashboard(ctx context.Context, sess *tenancy.Session) ([]ClientProgress, error) {
	r.metrics.IncrementCounter("repository.documents.firm_dashboard", nil)

	const sqlQuery = `
		SELECT
			c.id AS client_id,
			c.name AS client_name,
			c.email AS client_email,
			at.name AS audit_type,
			ca.financial_year,
			COUNT(cd.id) AS total_documents,
			COUNT(cd.id) FILTER (WHERE cd.status IN ('submitted', 'verified')) AS submitted_documents,
			COUNT(cd.id) FILTER (WHERE cd.status = 'verified') AS verified_documents,
			COUNT(cd.id) FILTER (WHERE cd.status IN ('pending', 'rejected') AND cd.due_date < CURRENT_DATE) AS overdue_documents
		FROM clients c
		JOIN client_audits ca ON ca.client_id = c.id
		JOIN audit_types at ON at.id = ca.audit_type_id
		LEFT JOIN client_documents cd ON cd.client_audit_id = ca.id
		WHERE ca.firm_id = $1
		GROUP BY c.id, ca.id, at.name
		ORDER BY c.created_at DESC`

	var rows []ClientProgress
	if err := r.q(sess).SelectContext(ctx, &rows, sqlQuery, sess.Scope.FirmID); err != nil {
		r.logger.Error("Failed to load firm dashboard", "error", err)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return nil, fmt.Errorf("load firm dashboard: %w", err)
	}

	for i := range rows {
		rows[i].ProgressPercentage = progressPercentage(rows[i].SubmittedDocuments, rows[i].TotalDocuments)
	}

	return rows, nil
}

// FirmClientDetail returns one client with its documents, scoped to the
// session's firm. A client belonging to another firm is ErrNotFound.
func (r *DocumentRepository) FirmClientDetail(ctx context.Context, sess *tenancy.Session, clientID int64) (*ClientDetail, error) {
	r.metrics.IncrementCounter("repository.documents.firm_client_detail", nil)

	const sqlQuery = `
		SELECT
			c.name AS client_name,
			c.email AS client_email,
			at.name AS audit_type,
			ca.financial_year,
			cd.id AS document_id,
			cd.document_name,
			cd.status,
			cd.due_date,
			cd.uploaded_at,
			cd.file_url
		FROM clients c
		JOIN client_audits ca ON ca.client_id = c.id
		JOIN audit_types at ON at.id = ca.audit_type_id
		LEFT JOIN client_documents cd ON cd.client_audit_id = ca.id
		WHERE c.id = $1 AND ca.firm_id = $2
		ORDER BY cd.due_date ASC NULLS LAST, cd.id ASC`

	type detailRow struct {
		ClientName    string                `db:"client_name"`
		ClientEmail   string                `db:"client_email"`
		AuditType     string                `db:"audit_type"`
		FinancialYear string                `db:"financial_year"`
		DocumentID    int64                 `db:"document_id"`
		DocumentName  string                `db:"document_name"`
		Status        entity.DocumentStatus `db:"status"`
		DueDate       *time.Time            `db:"due_date"`
		UploadedAt    *time.Time            `db:"uploaded_at"`
		FileURL       *string               `db:"file_url"`
	}

	var rows []detailRow
	if err := r.q(sess).SelectContext(ctx, &rows, sqlQuery, clientID, sess.Scope.FirmID); err != nil {
		r.logger.Error("Failed to load client detail", "error", err, "client_id", clientID)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return nil, fmt.Errorf("load client detail: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	detail := &ClientDetail{
		ClientName:    rows[0].ClientName,
		Email:         rows[0].ClientEmail,
		AuditType:     rows[0].AuditType,
		FinancialYear: rows[0].FinancialYear,
		Documents:     make([]DocumentRow, 0, len(rows)),
	}
	for _, row := range rows {
		detail.Documents = append(detail.Documents, DocumentRow{
			DocumentID:    row.DocumentID,
			Name:          row.DocumentName,
			Status:        row.Status,
			DueDate:       row.DueDate,
			UploadedAt:    row.UploadedAt,
			FileURL:       row.FileURL,
			FinancialYear: row.FinancialYear,
			AuditType:     row.AuditType,
		})
	}

	return detail, nil
}

// ClientDashboard summarizes the session client's engagement.
func (r *DocumentRepository) ClientDashboard(ctx context.Context, sess *tenancy.Session) (*EngagementProgress, error) {
	r.metrics.IncrementCounter("repository.documents.client_dashboard", nil)

	const sqlQuery = `
		SELECT
			at.name AS audit_type,
			ca.financial_year,
			COUNT(cd.id) AS total_documents,
			COUNT(cd.id) FILTER (WHERE cd.status IN ('submitted', 'verified')) AS submitted_documents,
			COUNT(cd.id) FILTER (WHERE cd.status IN ('pending', 'rejected') AND cd.due_date < CURRENT_DATE) AS overdue_documents
		FROM client_audits ca
		JOIN audit_types at ON at.id = ca.audit_type_id
		LEFT JOIN client_documents cd ON cd.client_audit_id = ca.id
		WHERE ca.client_id = $1
		GROUP BY ca.id, at.name`

	var progress EngagementProgress
	err := r.q(sess).GetContext(ctx, &progress, sqlQuery, sess.Scope.ClientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load client dashboard", "error", err)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return nil, fmt.Errorf("load client dashboard: %w", err)
	}

	progress.ProgressPercentage = progressPercentage(progress.SubmittedDocuments, progress.TotalDocuments)
	return &progress, nil
}

// DueSoon lists outstanding documents due in exactly one of the given day
// offsets (counting from today). The scheduler calls this with elevated
// visibility across all tenants, so no session is involved.
func (r *DocumentRepository) DueSoon(ctx context.Context, daysOut []int) ([]ReminderCandidate, error) {
	r.metrics.IncrementCounter("repository.documents.due_soon", nil)

	const sqlQuery = `
		SELECT
			cd.id AS document_id,
			cd.document_name,
			cd.due_date,
			(cd.due_date - CURRENT_DATE) AS days_left,
			c.name AS client_name,
			c.email AS client_email
		FROM client_documents cd
		JOIN client_audits ca ON ca.id = cd.client_audit_id
		JOIN clients c ON c.id = ca.client_id
		WHERE cd.status IN ('pending', 'rejected')
		  AND cd.due_date IS NOT NULL
		  AND cd.due_date - CURRENT_DATE = ANY($1)
		ORDER BY cd.due_date ASC, cd.id ASC`

	var rows []ReminderCandidate
	if err := r.db.SelectContext(ctx, &rows, sqlQuery, pq.Array(daysOut)); err != nil {
		r.logger.Error("Failed to query due-soon documents", "error", err)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return nil, fmt.Errorf("query due-soon documents: %w", err)
	}

	return rows, nil
}

// Overdue lists outstanding documents whose due date has passed, with the
// owning firm's address for escalation. Cross-tenant, scheduler only.
func (r *DocumentRepository) Overdue(ctx context.Context) ([]EscalationCandidate, error) {
	r.metrics.IncrementCounter("repository.documents.overdue", nil)

	const sqlQuery = `
		SELECT
			cd.id AS document_id,
			cd.document_name,
			cd.due_date,
			c.name AS client_name,
			f.name AS firm_name,
			f.email AS firm_email
		FROM client_documents cd
		JOIN client_audits ca ON ca.id = cd.client_audit_id
		JOIN clients c ON c.id = ca.client_id
		JOIN firms f ON f.id = ca.firm_id
		WHERE cd.status IN ('pending', 'rejected')
		  AND cd.due_date IS NOT NULL
		  AND cd.due_date < CURRENT_DATE
		ORDER BY cd.due_date ASC, cd.id ASC`

	var rows []EscalationCandidate
	if err := r.db.SelectContext(ctx, &rows, sqlQuery); err != nil {
		r.logger.Error("Failed to query overdue documents", "error", err)
		r.metrics.IncrementCounter("repository.documents.errors", nil)
		return nil, fmt.Errorf("query overdue documents: %w", err)
	}

	return rows, nil
}

func progressPercentage(submitted, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(submitted)/float64(total)*100 + 0.5)
}
