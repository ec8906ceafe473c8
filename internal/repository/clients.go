package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Hrideshsrivastava/audit-bridge/internal/database"
	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

// ClientRepository persists client accounts. Creation runs inside a firm
// session; activation and login run pre-auth against the pool.
type ClientRepository struct {
	db      *sqlx.DB
	logger  observability.Logger
	metrics observability.Metrics
	qb      squirrel.StatementBuilderType
}

func NewClientRepository(db *sqlx.DB, logger observability.Logger, metrics observability.Metrics) *ClientRepository {
	return &ClientRepository{
		db:      db,
		logger:  logger,
		metrics: metrics,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ClientRepository) q(sess *tenancy.Session) database.Querier {
	if sess != nil && sess.Tx != nil {
		return sess.Tx
	}
	return r.db
}

// Create inserts a client owned by the session's firm and links it in the
// firm_clients join table.
func (r *ClientRepository) Create(ctx context.Context, sess *tenancy.Session, client *entity.Client) error {
	r.metrics.IncrementCounter("repository.clients.create", nil)

	client.CreatedByFirmID = sess.Scope.FirmID

	query := r.qb.Insert("clients").
		Columns("name", "email", "access_key", "created_by_firm_id").
		Values(client.Name, client.Email, client.AccessKey, client.CreatedByFirmID).
		Suffix("RETURNING id, created_at")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = r.q(sess).QueryRowxContext(ctx, sqlQuery, args...).Scan(&client.ID, &client.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		r.logger.Error("Failed to create client", "error", err)
		r.metrics.IncrementCounter("repository.clients.errors", nil)
		return fmt.Errorf("create client: %w", err)
	}

	link := r.qb.Insert("firm_clients").
		Columns("firm_id", "client_id").
		Values(sess.Scope.FirmID, client.ID)

	sqlQuery, args, err = link.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.q(sess).ExecContext(ctx, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to link client to firm", "error", err)
		r.metrics.IncrementCounter("repository.clients.errors", nil)
		return fmt.Errorf("link client: %w", err)
	}

	return nil
}

// Activate consumes a one-time access key: it stores the password hash,
// marks the client active and clears the key in a single conditional update.
// A second activation with the same key matches no row and returns
// ErrNotFound.
func (r *ClientRepository) Activate(ctx context.Context, accessKey, passwordHash string) (*entity.Client, error) {
	r.metrics.IncrementCounter("repository.clients.activate", nil)

	query := r.qb.Update("clients").
		Set("password_hash", passwordHash).
		Set("is_active", true).
		Set("access_key", nil).
		Where(squirrel.Eq{"access_key": accessKey}).
		Suffix("RETURNING id, name, email")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var client entity.Client
	err = r.db.QueryRowxContext(ctx, sqlQuery, args...).Scan(&client.ID, &client.Name, &client.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to activate client", "error", err)
		r.metrics.IncrementCounter("repository.clients.errors", nil)
		return nil, fmt.Errorf("activate client: %w", err)
	}

	client.IsActive = true
	return &client, nil
}

// GetByEmail looks a client up for login.
func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*entity.Client, error) {
	r.metrics.IncrementCounter("repository.clients.get_by_email", nil)

	query := r.qb.Select("*").
		From("clients").
		Where(squirrel.Eq{"email": email})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var client entity.Client
	err = r.db.GetContext(ctx, &client, sqlQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get client", "error", err)
		r.metrics.IncrementCounter("repository.clients.errors", nil)
		return nil, fmt.Errorf("get client: %w", err)
	}

	return &client, nil
}
