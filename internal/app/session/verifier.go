package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/identity"
)

// Reason explains why credentials did not resolve to a user.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNoCredentials Reason = "no_credentials"
	ReasonInvalidToken  Reason = "invalid_token"
	ReasonProviderError Reason = "provider_error"
)

// Credentials are the tokens a request carried.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

func (c Credentials) Present() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}

// Result is the outcome of a verification. When OK is false, User is zero and Reason is set.
type Result struct {
	OK     bool
	User   domain.User
	Reason Reason

	// Refreshed is set when the access token was rejected and the refresh token yielded a
	// new session. Callers persist it (cookies).
	Refreshed *domain.Session
}

// TokenVerifier resolves an access token to its user.
type TokenVerifier interface {
	GetUser(ctx context.Context, accessToken string) (domain.User, error)
}

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (domain.Session, error)
}

// Verifier asks the identity provider whether credentials denote a live user.
// Results are never cached and nothing is retried.
type Verifier struct {
	tokens    TokenVerifier
	refresher Refresher
	log       *slog.Logger
}

// NewVerifier builds a Verifier. refresher may be nil, in which case refresh tokens are ignored.
func NewVerifier(tokens TokenVerifier, refresher Refresher, log *slog.Logger) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{tokens: tokens, refresher: refresher, log: log}
}

// Verify checks a single access token.
func (v *Verifier) Verify(ctx context.Context, accessToken string) (res Result) {
	if accessToken == "" {
		return Result{Reason: ReasonNoCredentials}
	}
	defer v.failClosed(ctx, &res)

	u, err := v.tokens.GetUser(ctx, accessToken)
	if err != nil {
		return v.failure(ctx, "get user", err)
	}
	if u.ID == "" {
		return Result{Reason: ReasonInvalidToken}
	}
	return Result{OK: true, User: u}
}

// Resolve checks the access token and, when it is missing or rejected, attempts one refresh.
func (v *Verifier) Resolve(ctx context.Context, c Credentials) (res Result) {
	if !c.Present() {
		return Result{Reason: ReasonNoCredentials}
	}

	if c.AccessToken != "" {
		res = v.Verify(ctx, c.AccessToken)
		if res.OK || c.RefreshToken == "" || v.refresher == nil {
			return res
		}
		if res.Reason == ReasonProviderError {
			// A provider outage is not a reason to burn the refresh token.
			return res
		}
	} else if v.refresher == nil {
		return Result{Reason: ReasonInvalidToken}
	}

	defer v.failClosed(ctx, &res)
	s, err := v.refresher.RefreshSession(ctx, c.RefreshToken)
	if err != nil {
		return v.failure(ctx, "refresh session", err)
	}
	if s.AccessToken == "" || s.User.ID == "" {
		return Result{Reason: ReasonInvalidToken}
	}
	return Result{OK: true, User: s.User, Refreshed: &s}
}

func (v *Verifier) failure(ctx context.Context, op string, err error) Result {
	if errors.Is(err, identity.ErrInvalidToken) {
		return Result{Reason: ReasonInvalidToken}
	}
	v.log.WarnContext(ctx, "session verification failed", "op", op, "err", err)
	return Result{Reason: ReasonProviderError}
}

func (v *Verifier) failClosed(ctx context.Context, res *Result) {
	if r := recover(); r != nil {
		v.log.ErrorContext(ctx, "session verification panicked", "panic", fmt.Sprint(r))
		*res = Result{Reason: ReasonProviderError}
	}
}
