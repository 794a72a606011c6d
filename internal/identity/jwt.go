package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject is returned for tokens without a subject claim.
var ErrMissingSubject = errors.New("token has no subject")

// Claims are the bearer token claims the gateway reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 tokens issued by the platform's auth
// service. The user id is the subject claim.
type JWTAuthenticator struct {
	secret []byte
	opts   []jwt.ParserOption
}

// NewJWTAuthenticator creates an authenticator. issuer and audience are
// enforced only when non-empty.
func NewJWTAuthenticator(secret, issuer, audience string) *JWTAuthenticator {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTAuthenticator{secret: []byte(secret), opts: opts}
}

// Authenticate parses and verifies token.
func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (Principal, error) {
	if len(a.secret) == 0 {
		return Principal{}, errors.New("jwt verification not configured")
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, a.opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("verifying token: %w", err)
	}
	if claims.Subject == "" {
		return Principal{}, ErrMissingSubject
	}
	return Principal{UserID: claims.Subject, Email: claims.Email}, nil
}

// Sign issues a token for the given principal. Used by the CLI to mint test
// tokens and by tests.
func (a *JWTAuthenticator) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
