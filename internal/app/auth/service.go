package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/identity"
)

// Service fronts the identity provider for the auth API.
type Service struct {
	provider identity.Provider
	log      *slog.Logger
	resetURL string
}

// NewService builds the auth service. resetRedirectURL is the page recovery links land on.
func NewService(provider identity.Provider, log *slog.Logger, resetRedirectURL string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{provider: provider, log: log, resetURL: resetRedirectURL}
}

func (s *Service) Login(ctx context.Context, email, password string) (domain.Session, error) {
	sess, err := s.provider.SignInWithPassword(ctx, domain.NormalizeEmail(email), password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return domain.Session{}, &Error{Kind: KindInvalidCredentials, Message: MsgInvalidCredentials}
		}
		return domain.Session{}, &Error{Kind: KindProviderUnavailable, Message: MsgProviderUnavailable, Err: err}
	}
	return sess, nil
}

func (s *Service) Register(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.provider.SignUp(ctx, domain.NormalizeEmail(email), password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return domain.User{}, &Error{Kind: KindRegistrationFailed, Message: MsgRegistrationFailed}
		}
		return domain.User{}, &Error{Kind: KindProviderUnavailable, Message: MsgProviderUnavailable, Err: err}
	}
	return u, nil
}

// Logout signs the session out at the provider. The returned error is for logging only;
// the caller clears cookies regardless.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return s.provider.SignOut(ctx, accessToken)
}

// RequestPasswordReset starts the recovery flow. It never fails from the caller's view.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) {
	err := s.provider.ResetPasswordForEmail(ctx, domain.NormalizeEmail(email), s.resetURL)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrUserNotFound):
		s.log.InfoContext(ctx, "password reset for unknown email")
	default:
		s.log.WarnContext(ctx, "password reset request failed", "err", err)
	}
}

func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if err := s.provider.UpdatePassword(ctx, token, newPassword); err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return &Error{Kind: KindInvalidToken, Message: MsgInvalidToken}
		}
		return &Error{Kind: KindProviderUnavailable, Message: MsgProviderUnavailable, Err: err}
	}
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, accessToken string) (domain.User, error) {
	u, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return domain.User{}, &Error{Kind: KindInvalidToken, Message: MsgInvalidToken}
		}
		return domain.User{}, &Error{Kind: KindProviderUnavailable, Message: MsgProviderUnavailable, Err: err}
	}
	return u, nil
}
