package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
)

// Token validation errors. Each maps to a distinct 401 message so callers
// can tell a stale session from a garbage header.
var (
	ErrNoToken         = errors.New("no authorization token provided")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrMalformedClaims = errors.New("invalid token structure")
)

// Principal is the identity a verified token resolves to.
type Principal struct {
	Kind tenancy.Kind
	ID   int64
}

// claims carries exactly one of FirmID or ClientID.
type claims struct {
	FirmID   int64 `json:"firmId,omitempty"`
	ClientID int64 `json:"clientId,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// IssueFirm signs a token identifying a firm.
func (t *Tokens) IssueFirm(firmID int64) (string, error) {
	return t.sign(claims{FirmID: firmID, RegisteredClaims: t.registered()})
}

// IssueClient signs a token identifying a client.
func (t *Tokens) IssueClient(clientID int64) (string, error) {
	return t.sign(claims{ClientID: clientID, RegisteredClaims: t.registered()})
}

func (t *Tokens) registered() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
}

func (t *Tokens) sign(c claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a raw token and resolves its principal. The principal kind
// comes from which identity claim is present; a token carrying neither (or
// both) is rejected as malformed.
func (t *Tokens) Parse(raw string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, ErrInvalidToken
	}

	switch {
	case c.FirmID != 0 && c.ClientID == 0:
		return Principal{Kind: tenancy.KindFirm, ID: c.FirmID}, nil
	case c.ClientID != 0 && c.FirmID == 0:
		return Principal{Kind: tenancy.KindClient, ID: c.ClientID}, nil
	default:
		return Principal{}, ErrMalformedClaims
	}
}
