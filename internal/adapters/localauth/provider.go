package localauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/clock"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/identity"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/sessionstore"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/userstore"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
	DefaultResetTTL   = time.Hour
)

type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	BcryptCost int

	// NewToken mints opaque tokens; defaults to random UUIDs.
	NewToken func() string
	// NewID mints user ids; defaults to random UUIDs.
	NewID func() string
}

// Provider is an identity.Provider backed by local stores. It is meant for development
// and tests; production deployments use the hosted provider.
type Provider struct {
	users    userstore.Store
	sessions sessionstore.Store
	clock    clock.Clock
	log      *slog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	cost       int
	newToken   func() string
	newID      func() string

	// Compared against when the email is unknown so both paths cost one bcrypt check
	// at the same cost as stored hashes.
	dummyHash []byte
}

var _ identity.Provider = (*Provider)(nil)

func NewProvider(users userstore.Store, sessions sessionstore.Store, clk clock.Clock, log *slog.Logger, opts Options) *Provider {
	p := &Provider{
		users:      users,
		sessions:   sessions,
		clock:      clk,
		log:        log,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		resetTTL:   opts.ResetTTL,
		cost:       opts.BcryptCost,
		newToken:   opts.NewToken,
		newID:      opts.NewID,
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.accessTTL <= 0 {
		p.accessTTL = DefaultAccessTTL
	}
	if p.refreshTTL <= 0 {
		p.refreshTTL = DefaultRefreshTTL
	}
	if p.resetTTL <= 0 {
		p.resetTTL = DefaultResetTTL
	}
	if p.cost < bcrypt.MinCost || p.cost > bcrypt.MaxCost {
		p.cost = bcrypt.DefaultCost
	}
	p.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), p.cost)
	if p.newToken == nil {
		p.newToken = uuid.NewString
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (domain.Session, error) {
	u, err := p.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
			return domain.Session{}, identity.ErrInvalidCredentials
		}
		return domain.Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return domain.Session{}, identity.ErrInvalidCredentials
	}

	now := p.clock.Now()
	if err := p.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return domain.Session{}, fmt.Errorf("touch last login: %w", err)
	}
	u.LastLoginAt = &now
	return p.issue(ctx, u, now)
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := userstore.User{
		ID:           domain.UserID(p.newID()),
		Email:        domain.NormalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    p.clock.Now(),
	}
	if err := p.users.Create(ctx, u); err != nil {
		if errors.Is(err, userstore.ErrEmailTaken) {
			return domain.User{}, identity.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return toDomainUser(u), nil
}

func (p *Provider) GetUser(ctx context.Context, accessToken string) (domain.User, error) {
	u, _, err := p.userForToken(ctx, accessToken, sessionstore.KindAccess)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(u), nil
}

// RefreshSession rotates the session: the presented refresh token and the access token
// issued with it are both revoked.
func (p *Provider) RefreshSession(ctx context.Context, refreshToken string) (domain.Session, error) {
	u, rec, err := p.userForToken(ctx, refreshToken, sessionstore.KindRefresh)
	if err != nil {
		return domain.Session{}, err
	}
	if err := p.revoke(ctx, refreshToken, rec); err != nil {
		return domain.Session{}, fmt.Errorf("consume refresh token: %w", err)
	}
	return p.issue(ctx, u, p.clock.Now())
}

// SignOut revokes the access token and the refresh token issued with it.
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return identity.ErrInvalidToken
	}
	rec, ok, err := p.sessions.Get(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("lookup token: %w", err)
	}
	if !ok {
		return p.sessions.Delete(ctx, accessToken)
	}
	return p.revoke(ctx, accessToken, rec)
}

func (p *Provider) revoke(ctx context.Context, token string, rec sessionstore.Record) error {
	if err := p.sessions.Delete(ctx, token); err != nil {
		return err
	}
	if rec.Pair == "" {
		return nil
	}
	return p.sessions.Delete(ctx, rec.Pair)
}

// ResetPasswordForEmail stores a recovery token and logs the recovery link; there is no
// mail delivery in local mode.
func (p *Provider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	u, err := p.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return identity.ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token := p.newToken()
	rec := sessionstore.Record{UserID: u.ID, Kind: sessionstore.KindReset, ExpiresAt: p.clock.Now().Add(p.resetTTL)}
	if err := p.sessions.Put(ctx, token, rec); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := redirectTo
	if parsed, err := url.Parse(redirectTo); err == nil {
		q := parsed.Query()
		q.Set("token", token)
		parsed.RawQuery = q.Encode()
		link = parsed.String()
	}
	p.log.InfoContext(ctx, "password reset requested", "user_id", string(u.ID), "link", link)
	return nil
}

func (p *Provider) UpdatePassword(ctx context.Context, token, newPassword string) error {
	rec, ok, err := p.sessions.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("lookup token: %w", err)
	}
	if !ok || (rec.Kind != sessionstore.KindReset && rec.Kind != sessionstore.KindAccess) {
		return identity.ErrInvalidToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := p.users.UpdatePasswordHash(ctx, rec.UserID, hash); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return identity.ErrInvalidToken
		}
		return fmt.Errorf("update password: %w", err)
	}
	if rec.Kind == sessionstore.KindReset {
		// Recovery tokens are single use.
		if err := p.sessions.Delete(ctx, token); err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
	}
	return nil
}

func (p *Provider) userForToken(ctx context.Context, token string, kind sessionstore.Kind) (userstore.User, sessionstore.Record, error) {
	if token == "" {
		return userstore.User{}, sessionstore.Record{}, identity.ErrInvalidToken
	}
	rec, ok, err := p.sessions.Get(ctx, token)
	if err != nil {
		return userstore.User{}, sessionstore.Record{}, fmt.Errorf("lookup token: %w", err)
	}
	if !ok || rec.Kind != kind {
		return userstore.User{}, sessionstore.Record{}, identity.ErrInvalidToken
	}
	u, err := p.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return userstore.User{}, sessionstore.Record{}, identity.ErrInvalidToken
		}
		return userstore.User{}, sessionstore.Record{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, rec, nil
}

func (p *Provider) issue(ctx context.Context, u userstore.User, now time.Time) (domain.Session, error) {
	access := p.newToken()
	refresh := p.newToken()
	expiresAt := now.Add(p.accessTTL)

	if err := p.sessions.Put(ctx, access, sessionstore.Record{UserID: u.ID, Kind: sessionstore.KindAccess, ExpiresAt: expiresAt, Pair: refresh}); err != nil {
		return domain.Session{}, fmt.Errorf("store access token: %w", err)
	}
	if err := p.sessions.Put(ctx, refresh, sessionstore.Record{UserID: u.ID, Kind: sessionstore.KindRefresh, ExpiresAt: now.Add(p.refreshTTL), Pair: access}); err != nil {
		return domain.Session{}, fmt.Errorf("store refresh token: %w", err)
	}
	return domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         toDomainUser(u),
	}, nil
}

func toDomainUser(u userstore.User) domain.User {
	out := domain.User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		IsAdmin:   u.IsAdmin,
	}
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		out.LastLoginAt = &v
	}
	return out
}
