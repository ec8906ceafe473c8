package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

// The failure paths below all reject before a transaction is opened, so the
// middleware runs fine without a database.
func newTestMiddleware(t *testing.T) (*Middleware, *Tokens) {
	t.Helper()
	tokens := NewTokens("test-secret", time.Hour)
	return NewMiddleware(tokens, nil, observability.NopLogger{}, observability.NopMetrics{}), tokens
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestMiddlewareRejectsBeforeTransaction(t *testing.T) {
	mw, tokens := newTestMiddleware(t)

	handler := mw.Firm(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/firm/dashboard", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "No authorization token provided", errorBody(t, rec))
	})

	t.Run("not a bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/firm/dashboard", nil)
		req.Header.Set("Authorization", "Basic abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid authorization format", errorBody(t, rec))
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/firm/dashboard", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid token", errorBody(t, rec))
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewTokens("test-secret", -time.Minute)
		raw, err := expired.IssueFirm(1)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/firm/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Token expired", errorBody(t, rec))
	})

	t.Run("client token on a firm route", func(t *testing.T) {
		raw, err := tokens.IssueClient(9)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/firm/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid token structure", errorBody(t, rec))
	})
}

func TestMiddlewareKindSymmetry(t *testing.T) {
	mw, tokens := newTestMiddleware(t)

	clientRoute := mw.Client(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	raw, err := tokens.IssueFirm(3)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/client/documents", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	clientRoute.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token structure", errorBody(t, rec))
}

func TestStatusRecorder(t *testing.T) {
	t.Run("captures explicit status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

		sr.WriteHeader(http.StatusConflict)

		assert.Equal(t, http.StatusConflict, sr.status)
		assert.True(t, sr.wroteHeader)
	})

	t.Run("first write locks the status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

		sr.WriteHeader(http.StatusNotFound)
		sr.WriteHeader(http.StatusOK)

		assert.Equal(t, http.StatusNotFound, sr.status)
	})

	t.Run("implicit 200 on body write", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

		_, err := sr.Write([]byte("ok"))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, sr.status)
		assert.True(t, sr.wroteHeader)
	})
}

func TestSessionScopeFromPrincipal(t *testing.T) {
	firm := tenancy.NewFirmSession(nil, 11)
	assert.Equal(t, tenancy.KindFirm, firm.Scope.Kind)
	assert.Equal(t, int64(11), firm.Scope.FirmID)
	assert.Zero(t, firm.Scope.ClientID)

	client := tenancy.NewClientSession(nil, 22)
	assert.Equal(t, tenancy.KindClient, client.Scope.Kind)
	assert.Equal(t, int64(22), client.Scope.ClientID)
	assert.Zero(t, client.Scope.FirmID)
}
