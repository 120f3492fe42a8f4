package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"

	"github.com/dealdesk/dealdesk/internal/logging"
)

// Codec signs and verifies the compact identity tokens used for both the
// access and refresh halves of a pair. The caller supplies the secret per
// call so the two halves can use distinct secrets.
type Codec struct {
	logger logging.Logger
}

// NewCodec creates a token codec.
func NewCodec(logger logging.Logger) *Codec {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Codec{logger: logger}
}

// Sign produces a tamper-evident token string embedding the claims plus
// issued-at and expiry. It fails when the secret is absent.
func (c *Codec) Sign(claims Claims, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrSigningSecretMissing
	}

	now := time.Now()
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token").
			WithCode(goerrors.CodeInternal)
	}

	return signed, nil
}

// Verify parses and validates a token string. Expired tokens are
// distinguishable from malformed or badly signed ones.
func (c *Codec) Verify(tokenString, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrSigningSecretMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("codec: unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		c.logger.Error("codec: could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
