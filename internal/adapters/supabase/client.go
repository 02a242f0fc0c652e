package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/identity"
)

// APIError is a non-2xx response from the auth API that does not map to an identity error.
type APIError struct {
	Status int
	Code   string
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase auth returned %d (%s): %s", e.Status, e.Code, e.Msg)
}

// Client adapts the auth-go SDK to identity.Provider.
type Client struct {
	api       auth.Client
	transport http.RoundTripper
	timeout   time.Duration
	now       func() time.Time
}

var _ identity.Provider = (*Client)(nil)

// NewClient targets baseURL/auth/v1. httpClient may be nil; its Transport and Timeout are reused.
func NewClient(baseURL, anonKey string, httpClient *http.Client) *Client {
	c := &Client{
		transport: http.DefaultTransport,
		timeout:   10 * time.Second,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if httpClient != nil {
		if httpClient.Transport != nil {
			c.transport = httpClient.Transport
		}
		if httpClient.Timeout > 0 {
			c.timeout = httpClient.Timeout
		}
	}
	c.api = auth.New("", anonKey).WithCustomAuthURL(strings.TrimRight(baseURL, "/") + "/auth/v1")
	return c
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (domain.Session, error) {
	api, rt := c.with(ctx, "")
	resp, err := api.SignInWithEmailPassword(email, password)
	if err != nil {
		err = rt.wrap("sign in", err)
		var ae *APIError
		if errors.As(err, &ae) && (ae.Status == http.StatusBadRequest || ae.Status == http.StatusUnauthorized) {
			return domain.Session{}, identity.ErrInvalidCredentials
		}
		return domain.Session{}, err
	}
	return c.toSession(resp.Session), nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (domain.User, error) {
	api, rt := c.with(ctx, "")
	resp, err := api.Signup(types.SignupRequest{Email: email, Password: password})
	if err != nil {
		err = rt.wrap("sign up", err)
		var ae *APIError
		if errors.As(err, &ae) && (ae.Code == "user_already_exists" || ae.Code == "email_exists" || ae.Status == http.StatusUnprocessableEntity) {
			return domain.User{}, identity.ErrEmailTaken
		}
		return domain.User{}, err
	}
	// Autoconfirm projects answer with a session, the rest with the bare user.
	if resp.Session.User.ID != uuid.Nil {
		return toUser(resp.Session.User), nil
	}
	if resp.User.ID == uuid.Nil {
		return domain.User{}, errors.New("signup response without user id")
	}
	return toUser(resp.User), nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (domain.User, error) {
	if accessToken == "" {
		return domain.User{}, identity.ErrInvalidToken
	}
	api, rt := c.with(ctx, accessToken)
	resp, err := api.GetUser()
	if err != nil {
		return domain.User{}, tokenErr(rt.wrap("get user", err))
	}
	return toUser(resp.User), nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (domain.Session, error) {
	if refreshToken == "" {
		return domain.Session{}, identity.ErrInvalidToken
	}
	api, rt := c.with(ctx, "")
	resp, err := api.RefreshToken(refreshToken)
	if err != nil {
		err = rt.wrap("refresh", err)
		var ae *APIError
		if errors.As(err, &ae) && ae.Status == http.StatusBadRequest {
			return domain.Session{}, identity.ErrInvalidToken
		}
		return domain.Session{}, tokenErr(err)
	}
	return c.toSession(resp.Session), nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return identity.ErrInvalidToken
	}
	api, rt := c.with(ctx, accessToken)
	if err := api.Logout(); err != nil {
		return tokenErr(rt.wrap("logout", err))
	}
	return nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	api, rt := c.with(ctx, "")
	if redirectTo != "" {
		rt.query = url.Values{"redirect_to": {redirectTo}}
	}
	if err := api.Recover(types.RecoverRequest{Email: email}); err != nil {
		return rt.wrap("recover", err)
	}
	return nil
}

// UpdatePassword uses the access token the recovery link signs the user in with.
func (c *Client) UpdatePassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return identity.ErrInvalidToken
	}
	api, rt := c.with(ctx, token)
	if _, err := api.UpdateUser(types.UpdateUserRequest{Password: &newPassword}); err != nil {
		return tokenErr(rt.wrap("update user", err))
	}
	return nil
}

// with returns an SDK client bound to ctx whose transport records the error body of a failed call.
func (c *Client) with(ctx context.Context, token string) (auth.Client, *callTransport) {
	rt := &callTransport{ctx: ctx, next: c.transport}
	api := c.api.WithClient(http.Client{Transport: rt, Timeout: c.timeout})
	if token != "" {
		api = api.WithToken(token)
	}
	return api, rt
}

type errorResponse struct {
	// Older GoTrue releases.
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	// Newer releases.
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
}

// callTransport serves a single SDK call. The SDK folds non-2xx bodies into plain
// error strings, so the status and error code are captured here instead.
type callTransport struct {
	ctx    context.Context
	next   http.RoundTripper
	query  url.Values
	apiErr *APIError
}

func (t *callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	if len(t.query) > 0 {
		q := req.URL.Query()
		for k, vs := range t.query {
			q[k] = vs
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.next.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		return resp, err
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	var er errorResponse
	_ = json.Unmarshal(raw, &er)
	ae := &APIError{Status: resp.StatusCode, Code: er.ErrorCode, Msg: er.Msg}
	if ae.Code == "" {
		ae.Code = er.Error
	}
	if ae.Msg == "" {
		ae.Msg = er.ErrorDescription
	}
	if ae.Msg == "" {
		ae.Msg = er.Message
	}
	t.apiErr = ae
	return resp, nil
}

func (t *callTransport) wrap(op string, err error) error {
	if t.apiErr != nil {
		return t.apiErr
	}
	if ctxErr := t.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("supabase %s: %w", op, ctxErr)
	}
	return fmt.Errorf("supabase %s: %w", op, err)
}

func (c *Client) toSession(s types.Session) domain.Session {
	exp := time.Unix(s.ExpiresAt, 0).UTC()
	if s.ExpiresAt == 0 {
		exp = c.now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return domain.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    exp,
		User:         toUser(s.User),
	}
}

func toUser(u types.User) domain.User {
	out := domain.User{
		ID:        domain.UserID(u.ID.String()),
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC(),
		IsAdmin:   hasAdminRole(u.AppMetadata),
	}
	if u.LastSignInAt != nil {
		v := u.LastSignInAt.UTC()
		out.LastLoginAt = &v
	}
	return out
}

// hasAdminRole reads app_metadata.role or app_metadata.roles.
func hasAdminRole(meta map[string]interface{}) bool {
	if role, _ := meta["role"].(string); role == "admin" {
		return true
	}
	roles, _ := meta["roles"].([]interface{})
	for _, r := range roles {
		if s, _ := r.(string); s == "admin" {
			return true
		}
	}
	return false
}

// tokenErr maps rejected bearer tokens to identity.ErrInvalidToken.
func tokenErr(err error) error {
	var ae *APIError
	if errors.As(err, &ae) && (ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden) {
		return identity.ErrInvalidToken
	}
	return err
}
