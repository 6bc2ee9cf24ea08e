package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token scopes. A token issued for one purpose can never be replayed for
// another: Verify rejects any scope other than the expected one. The wire
// values for access/refresh are kept as deployed clients already know them.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
	ScopeEmail   = "email_token"
)

// ErrInvalidToken is the single externally visible verification failure.
// Signature, expiry and scope mismatches all collapse into it so callers
// cannot be used as an oracle.
var ErrInvalidToken = errors.New("invalid token")

// TokenCodec signs and verifies scoped JWTs. Access and refresh tokens use
// the session secret; email confirmation tokens use a distinct secret so
// confirmation links can be invalidated without touching live sessions.
type TokenCodec struct {
	sessionSecret []byte
	emailSecret   []byte

	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	EmailTokenTTL time.Duration
}

func NewTokenCodec(sessionSecret, emailSecret string, accessTTL, refreshTTL, emailTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		sessionSecret: []byte(sessionSecret),
		emailSecret:   []byte(emailSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		EmailTokenTTL: emailTTL,
	}
}

type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

func (c *TokenCodec) keyFor(scope string) []byte {
	if scope == ScopeEmail {
		return c.emailSecret
	}
	return c.sessionSecret
}

func (c *TokenCodec) ttlFor(scope string) time.Duration {
	switch scope {
	case ScopeRefresh:
		return c.RefreshTTL
	case ScopeEmail:
		return c.EmailTokenTTL
	default:
		return c.AccessTTL
	}
}

// Issue signs a token for subject with the scope's configured TTL and key.
func (c *TokenCodec) Issue(subject, scope string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(c.ttlFor(scope))
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			// jti makes two tokens for the same subject distinct even when
			// issued within the same second, which rotation relies on
			ID: uuid.NewString(),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(c.keyFor(scope))
	return s, exp, err
}

// Verify checks signature, expiry and scope and returns the subject.
// Any failure is reported as ErrInvalidToken.
func (c *TokenCodec) Verify(tokenStr, scope string) (string, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.keyFor(scope), nil
	})
	if err != nil || !tkn.Valid {
		return "", ErrInvalidToken
	}
	if claims.Scope != scope {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Subject decodes the subject of any token signed with the session secret,
// without a scope check. Logout accepts whatever the client still holds.
func (c *TokenCodec) Subject(tokenStr string) (string, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.sessionSecret, nil
	})
	if err != nil || !tkn.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
