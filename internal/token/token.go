// Package token issues and verifies the signed, stateless session tokens
// used to authenticate API requests. A token is an HS256 JWT carrying the
// user id as subject plus the user's roles; it is never stored server-side
// and stays valid until its expiry, regardless of later account changes.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. The HTTP boundary maps all of these to the same
// 401 response so callers cannot distinguish why a token was rejected.
var (
	// ErrMalformed means the token could not be parsed into its structural parts.
	ErrMalformed = errors.New("token malformed")
	// ErrBadSignature means the signature does not match the claims under the
	// current secret.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrExpired means the token was well-formed and correctly signed but its
	// expiry has passed.
	ErrExpired = errors.New("token expired")
)

// Claims is the signed payload embedded in every issued token.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a fixed process-wide secret and TTL.
// The secret is set once at startup; rotating it invalidates every
// outstanding token and is treated as a redeploy, not a runtime operation.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Codec{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue mints a token for the given subject valid from now until now+TTL.
func (c *Codec) Issue(subject string, roles []string, now time.Time) (string, error) {
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks structure, signature, and expiry against the given clock
// reading, in that order of precedence. A token is expired once
// now >= expiresAt. On success the embedded claims are returned.
func (c *Codec) Verify(tokenString string, now time.Time) (Claims, error) {
	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !parsed.Valid || claims.Subject == "" {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
