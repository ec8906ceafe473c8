package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

// EmailLogRepository records sent notifications. Append-only: entries are
// never updated or deleted. Used exclusively by the scheduler, which runs
// with cross-tenant visibility, so methods go straight to the pool.
type EmailLogRepository struct {
	db      *sqlx.DB
	logger  observability.Logger
	metrics observability.Metrics
	qb      squirrel.StatementBuilderType
}

func NewEmailLogRepository(db *sqlx.DB, logger observability.Logger, metrics observability.Metrics) *EmailLogRepository {
	return &EmailLogRepository{
		db:      db,
		logger:  logger,
		metrics: metrics,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Exists reports whether the (event type, document, recipient) triple has
// already been recorded.
func (r *EmailLogRepository) Exists(ctx context.Context, emailType string, documentID int64, recipient string) (bool, error) {
	r.metrics.IncrementCounter("repository.email_logs.exists", nil)

	query := r.qb.Select("COUNT(1)").
		From("email_logs").
		Where(squirrel.Eq{
			"email_type":      emailType,
			"document_id":     documentID,
			"recipient_email": recipient,
		})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to check email log", "error", err)
		r.metrics.IncrementCounter("repository.email_logs.errors", nil)
		return false, fmt.Errorf("check email log: %w", err)
	}

	return count > 0, nil
}

// Append records a sent notification.
func (r *EmailLogRepository) Append(ctx context.Context, entry *entity.EmailLog) error {
	r.metrics.IncrementCounter("repository.email_logs.append", nil)

	query := r.qb.Insert("email_logs").
		Columns("email_type", "document_id", "recipient_email").
		Values(entry.EmailType, entry.DocumentID, entry.RecipientEmail).
		Suffix("RETURNING id, sent_at")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = r.db.QueryRowxContext(ctx, sqlQuery, args...).Scan(&entry.ID, &entry.SentAt)
	if err != nil {
		r.logger.Error("Failed to append email log", "error", err)
		r.metrics.IncrementCounter("repository.email_logs.errors", nil)
		return fmt.Errorf("append email log: %w", err)
	}

	return nil
}
