package identity

import (
	"context"
	"errors"

	"github.com/shoplist-app/shoplist-api/internal/domain"
)

var (
	// ErrInvalidCredentials indicates the email/password pair was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates an access or refresh token does not denote a live session.
	ErrInvalidToken = errors.New("invalid token")

	// ErrEmailTaken indicates sign-up for an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound indicates no account exists for the requested email.
	ErrUserNotFound = errors.New("user not found")
)

// Provider is the identity provider capability the application depends on.
// Implementations must be safe for concurrent use and must not cache verification results.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (domain.Session, error)
	SignUp(ctx context.Context, email, password string) (domain.User, error)

	// GetUser returns the user owning a live access token.
	GetUser(ctx context.Context, accessToken string) (domain.User, error)
	RefreshSession(ctx context.Context, refreshToken string) (domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error

	// ResetPasswordForEmail starts the password recovery flow. redirectTo is the page the
	// recovery link should land on.
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error

	// UpdatePassword sets a new password for the user owning token, which is either an
	// access token or a recovery token delivered by the reset flow.
	UpdatePassword(ctx context.Context, token, newPassword string) error
}
