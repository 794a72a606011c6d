// Package identity derives a caller identity from an incoming request.
//
// DESIGN: Resolution never fails. A verified bearer token yields a user
// identity; anything else (absent, malformed, expired, wrong signature)
// silently downgrades to a session identity. Sessions reuse the caller's
// session_id when present and are minted otherwise, so two anonymous calls
// without a session_id never share a quota counter.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/utils"
)

// Kind distinguishes authenticated users from session callers.
type Kind string

const (
	KindUser    Kind = "user"
	KindSession Kind = "session"
)

// SessionPrefix marks gateway-minted session tokens.
const SessionPrefix = "anon_"

// CallerIdentity is derived per request and never persisted.
type CallerIdentity struct {
	UserID       string
	Email        string
	SessionToken string
}

// Kind reports whether the caller is a verified user.
func (c CallerIdentity) Kind() Kind {
	if c.UserID != "" {
		return KindUser
	}
	return KindSession
}

// Key is the quota and usage key for this caller.
func (c CallerIdentity) Key() string {
	if c.UserID != "" {
		return "user:" + c.UserID
	}
	return "session:" + c.SessionToken
}

// Principal is what a verified credential asserts.
type Principal struct {
	UserID string
	Email  string
}

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// Resolver turns request credentials into a CallerIdentity.
type Resolver struct {
	auth Authenticator
	now  func() time.Time
}

// NewResolver creates a resolver. A nil authenticator treats every bearer
// token as invalid.
func NewResolver(auth Authenticator) *Resolver {
	return &Resolver{auth: auth, now: time.Now}
}

// Resolve derives the caller identity from the Authorization header value
// and the optional caller-supplied session id.
func (r *Resolver) Resolve(ctx context.Context, authorization, sessionID string) CallerIdentity {
	if token, ok := utils.BearerToken(authorization); ok && r.auth != nil {
		p, err := r.auth.Authenticate(ctx, token)
		if err == nil && p.UserID != "" {
			return CallerIdentity{UserID: p.UserID, Email: p.Email}
		}
		log.Debug().Err(err).Str("authorization", utils.MaskBearer(authorization)).Msg("bearer token rejected, using session identity")
	}

	if s := strings.TrimSpace(sessionID); s != "" {
		return CallerIdentity{SessionToken: s}
	}
	return CallerIdentity{SessionToken: r.mintSession()}
}

func (r *Resolver) mintSession() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%s%d_%s", SessionPrefix, r.now().UnixMilli(), suffix)
}
