package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	t.Run("firm token", func(t *testing.T) {
		raw, err := tokens.IssueFirm(42)
		require.NoError(t, err)

		principal, err := tokens.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, tenancy.KindFirm, principal.Kind)
		assert.Equal(t, int64(42), principal.ID)
	})

	t.Run("client token", func(t *testing.T) {
		raw, err := tokens.IssueClient(7)
		require.NoError(t, err)

		principal, err := tokens.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, tenancy.KindClient, principal.Kind)
		assert.Equal(t, int64(7), principal.ID)
	})
}

func TestTokensParseFailures(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("other-secret", time.Hour)
		raw, err := other.IssueFirm(1)
		require.NoError(t, err)

		_, err = tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokens("test-secret", -time.Minute)
		raw, err := expired.IssueFirm(1)
		require.NoError(t, err)

		_, err = tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("no identity claim", func(t *testing.T) {
		raw := signClaims(t, "test-secret", claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		_, err := tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrMalformedClaims)
	})

	t.Run("both identity claims", func(t *testing.T) {
		raw := signClaims(t, "test-secret", claims{
			FirmID:   1,
			ClientID: 2,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		_, err := tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrMalformedClaims)
	})

	t.Run("unexpected signing algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, claims{FirmID: 1})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func signClaims(t *testing.T, secret string, c claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}
