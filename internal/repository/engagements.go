package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Hrideshsrivastava/audit-bridge/internal/database"
	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

// EngagementRepository persists audit engagements and fans out the template
// documents when one is created.
type EngagementRepository struct {
	db      *sqlx.DB
	logger  observability.Logger
	metrics observability.Metrics
	qb      squirrel.StatementBuilderType
}

func NewEngagementRepository(db *sqlx.DB, logger observability.Logger, metrics observability.Metrics) *EngagementRepository {
	return &EngagementRepository{
		db:      db,
		logger:  logger,
		metrics: metrics,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *EngagementRepository) q(sess *tenancy.Session) database.Querier {
	if sess != nil && sess.Tx != nil {
		return sess.Tx
	}
	return r.db
}

// Create inserts an engagement owned by the session's firm.
func (r *EngagementRepository) Create(ctx context.Context, sess *tenancy.Session, eng *entity.Engagement) error {
	r.metrics.IncrementCounter("repository.engagements.create", nil)

	eng.FirmID = sess.Scope.FirmID

	query := r.qb.Insert("client_audits").
		Columns("client_id", "audit_type_id", "financial_year", "firm_id").
		Values(eng.ClientID, eng.AuditTypeID, eng.FinancialYear, eng.FirmID).
		Suffix("RETURNING id, created_at")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = r.q(sess).QueryRowxContext(ctx, sqlQuery, args...).Scan(&eng.ID, &eng.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create engagement", "error", err)
		r.metrics.IncrementCounter("repository.engagements.errors", nil)
		return fmt.Errorf("create engagement: %w", err)
	}

	return nil
}

// CreateDocumentsFromTemplate bulk-inserts one pending document per template
// entry for the engagement's audit type. Returns the number of documents
// created.
func (r *EngagementRepository) CreateDocumentsFromTemplate(ctx context.Context, sess *tenancy.Session, engagementID, auditTypeID int64) (int64, error) {
	r.metrics.IncrementCounter("repository.engagements.fanout", nil)

	// squirrel has no INSERT ... SELECT builder, so this one is hand-rolled.
	const sqlQuery = `
		INSERT INTO client_documents (client_audit_id, document_name, firm_id)
		SELECT $1, document_name, $2
		FROM audit_documents_template
		WHERE audit_type_id = $3`

	res, err := r.q(sess).ExecContext(ctx, sqlQuery, engagementID, sess.Scope.FirmID, auditTypeID)
	if err != nil {
		r.logger.Error("Failed to fan out template documents", "error", err)
		r.metrics.IncrementCounter("repository.engagements.errors", nil)
		return 0, fmt.Errorf("create documents from template: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return count, nil
}

// AuditTypes lists the fixed audit-type catalog.
func (r *EngagementRepository) AuditTypes(ctx context.Context) ([]entity.AuditType, error) {
	r.metrics.IncrementCounter("repository.engagements.audit_types", nil)

	query := r.qb.Select("*").
		From("audit_types").
		OrderBy("id ASC")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var types []entity.AuditType
	if err := r.db.SelectContext(ctx, &types, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to list audit types", "error", err)
		r.metrics.IncrementCounter("repository.engagements.errors", nil)
		return nil, fmt.Errorf("list audit types: %w", err)
	}

	return types, nil
}
