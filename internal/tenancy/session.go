// Package tenancy carries the per-request tenant scope and its transaction.
//
// The scope is an explicit value threaded into every data-access call; the
// repositories add the ownership predicate themselves. There is no ambient
// session variable, so a scope can never leak across requests.
package tenancy

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Kind distinguishes the two principal kinds. Their capability sets do not
// overlap: a firm token is never honored on a client route and vice versa.
type Kind string

const (
	KindFirm   Kind = "firm"
	KindClient Kind = "client"
)

// ErrNoSession is returned when a handler runs without an authenticated
// session in its context.
var ErrNoSession = errors.New("no tenant session in context")

// Scope identifies the authenticated tenant.
type Scope struct {
	Kind     Kind
	FirmID   int64
	ClientID int64
}

// Session binds a tenant scope to a request-lifetime database transaction.
// The auth middleware opens the transaction, commits it when the request
// succeeds and rolls it back otherwise; hooks registered with AfterCommit
// run only after a successful commit.
type Session struct {
	Scope Scope
	Tx    *sqlx.Tx

	hooks []func()
}

// NewFirmSession returns a session scoped to the given firm.
func NewFirmSession(tx *sqlx.Tx, firmID int64) *Session {
	return &Session{
		Scope: Scope{Kind: KindFirm, FirmID: firmID},
		Tx:    tx,
	}
}

// NewClientSession returns a session scoped to the given client.
func NewClientSession(tx *sqlx.Tx, clientID int64) *Session {
	return &Session{
		Scope: Scope{Kind: KindClient, ClientID: clientID},
		Tx:    tx,
	}
}

// AfterCommit registers fn to run once the request transaction has
// committed. Used for side effects that must not precede the durable write,
// such as enqueueing notifications.
func (s *Session) AfterCommit(fn func()) {
	s.hooks = append(s.hooks, fn)
}

// RunAfterCommitHooks fires the registered hooks in order. The middleware
// calls this exactly once, after a successful commit.
func (s *Session) RunAfterCommitHooks() {
	for _, fn := range s.hooks {
		fn()
	}
}

type contextKey struct{}

// WithSession attaches the session to the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext extracts the session from the context.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

// MustFromContext extracts the session or returns ErrNoSession.
func MustFromContext(ctx context.Context) (*Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}
