package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// FirmRepository persists firm accounts. Signup and login run before any
// tenant scope exists, so all methods use the pool directly.
type FirmRepository struct {
	db      *sqlx.DB
	logger  observability.Logger
	metrics observability.Metrics
	qb      squirrel.StatementBuilderType
}

func NewFirmRepository(db *sqlx.DB, logger observability.Logger, metrics observability.Metrics) *FirmRepository {
	return &FirmRepository{
		db:      db,
		logger:  logger,
		metrics: metrics,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a firm and fills in its generated ID.
func (r *FirmRepository) Create(ctx context.Context, firm *entity.Firm) error {
	r.metrics.IncrementCounter("repository.firms.create", nil)

	query := r.qb.Insert("firms").
		Columns("name", "email", "password_hash").
		Values(firm.Name, firm.Email, firm.PasswordHash).
		Suffix("RETURNING id, created_at")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = r.db.QueryRowxContext(ctx, sqlQuery, args...).Scan(&firm.ID, &firm.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		r.logger.Error("Failed to create firm", "error", err)
		r.metrics.IncrementCounter("repository.firms.errors", nil)
		return fmt.Errorf("create firm: %w", err)
	}

	return nil
}

// GetByEmail looks a firm up for login.
func (r *FirmRepository) GetByEmail(ctx context.Context, email string) (*entity.Firm, error) {
	r.metrics.IncrementCounter("repository.firms.get_by_email", nil)

	query := r.qb.Select("*").
		From("firms").
		Where(squirrel.Eq{"email": email})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var firm entity.Firm
	err = r.db.GetContext(ctx, &firm, sqlQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get firm", "error", err)
		r.metrics.IncrementCounter("repository.firms.errors", nil)
		return nil, fmt.Errorf("get firm: %w", err)
	}

	return &firm, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
