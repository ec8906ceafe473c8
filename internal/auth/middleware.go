package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

// Middleware authenticates requests and binds each one to a tenant-scoped
// database transaction.
//
// Order matters on the failure path: the token is verified before any
// connection is checked out, so authentication failures can never leak a
// transaction. Once the transaction is open it is finished exactly once:
// committed when the handler reports success, rolled back on 5xx or panic.
type Middleware struct {
	tokens  *Tokens
	db      *sqlx.DB
	logger  observability.Logger
	metrics observability.Metrics
}

func NewMiddleware(tokens *Tokens, db *sqlx.DB, logger observability.Logger, metrics observability.Metrics) *Middleware {
	return &Middleware{
		tokens:  tokens,
		db:      db,
		logger:  logger,
		metrics: metrics,
	}
}

// Firm admits only firm principals.
func (m *Middleware) Firm(next http.Handler) http.Handler {
	return m.require(tenancy.KindFirm, next)
}

// Client admits only client principals.
func (m *Middleware) Client(next http.Handler) http.Handler {
	return m.require(tenancy.KindClient, next)
}

func (m *Middleware) require(kind tenancy.Kind, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := extractBearer(r)
		if err != nil {
			m.metrics.IncrementCounter("auth.failures", map[string]string{"reason": "missing_token"})
			writeAuthError(w, http.StatusUnauthorized, err)
			return
		}

		principal, err := m.tokens.Parse(raw)
		if err != nil {
			m.metrics.IncrementCounter("auth.failures", map[string]string{"reason": "invalid_token"})
			writeAuthError(w, http.StatusUnauthorized, err)
			return
		}

		// A firm token is never honored on a client route and vice versa.
		// The response is indistinguishable from a malformed token.
		if principal.Kind != kind {
			m.metrics.IncrementCounter("auth.failures", map[string]string{"reason": "kind_mismatch"})
			writeAuthError(w, http.StatusUnauthorized, ErrMalformedClaims)
			return
		}

		tx, err := m.db.BeginTxx(r.Context(), nil)
		if err != nil {
			m.logger.Error("Failed to begin request transaction", "error", err)
			m.metrics.IncrementCounter("auth.tx_begin_errors", nil)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Request failed"})
			return
		}

		var sess *tenancy.Session
		if kind == tenancy.KindFirm {
			sess = tenancy.NewFirmSession(tx, principal.ID)
		} else {
			sess = tenancy.NewClientSession(tx, principal.ID)
		}

		ctx := tenancy.WithSession(r.Context(), sess)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				if err := tx.Rollback(); err != nil {
					m.logger.Error("Failed to roll back after panic", "error", err)
				}
				m.logger.Error("Handler panicked", "panic", p, "path", r.URL.Path)
				m.metrics.IncrementCounter("auth.panics", nil)
				if !rec.wroteHeader {
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Request failed"})
				}
			}
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))

		if rec.status >= http.StatusInternalServerError {
			if err := tx.Rollback(); err != nil {
				m.logger.Error("Failed to roll back request transaction", "error", err)
			}
			m.metrics.IncrementCounter("auth.rollbacks", nil)
			return
		}

		if err := tx.Commit(); err != nil {
			m.logger.Error("Failed to commit request transaction", "error", err)
			m.metrics.IncrementCounter("auth.commit_errors", nil)
			return
		}

		sess.RunAfterCommitHooks()
	})
}

// extractBearer pulls the token out of the Authorization header.
func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization format")
	}

	return parts[1], nil
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	// Capitalize the sentinel message for the wire format.
	msg := err.Error()
	if msg != "" {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusRecorder captures the response status so the middleware can decide
// between commit and rollback after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	return r.ResponseWriter.Write(b)
}
