package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shoplist-app/shoplist-api/internal/adapters/localauth"
	memclock "github.com/shoplist-app/shoplist-api/internal/adapters/memory/clock"
	memidempotency "github.com/shoplist-app/shoplist-api/internal/adapters/memory/idempotency"
	memlistrepo "github.com/shoplist-app/shoplist-api/internal/adapters/memory/listrepo"
	memsessionstore "github.com/shoplist-app/shoplist-api/internal/adapters/memory/sessionstore"
	memuserstore "github.com/shoplist-app/shoplist-api/internal/adapters/memory/userstore"
	"github.com/shoplist-app/shoplist-api/internal/adapters/textsplit"
	"github.com/shoplist-app/shoplist-api/internal/app/auth"
	"github.com/shoplist-app/shoplist-api/internal/app/productparse"
	"github.com/shoplist-app/shoplist-api/internal/app/session"
	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
	"github.com/shoplist-app/shoplist-api/internal/platform/logging"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/identity"
)

type testEnv struct {
	h        http.Handler
	srv      *Server
	provider *localauth.Provider
	clk      *memclock.ManualClock
	metrics  *Metrics
}

type envOptions struct {
	// wrap lets a test decorate the identity provider seen by the auth service.
	wrap func(identity.Provider) identity.Provider
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	log := logging.Discard()
	clk := memclock.NewManualClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	provider := localauth.NewProvider(memuserstore.NewStore(), memsessionstore.NewStore(clk.Now), clk, log, localauth.Options{
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	})

	var authProvider identity.Provider = provider
	if opts.wrap != nil {
		authProvider = opts.wrap(provider)
	}
	lists := shoppinglists.NewService(memlistrepo.NewRepo(), clk)
	srv := &Server{
		Lists:  lists,
		Auth:   auth.NewService(authProvider, log, "http://localhost/reset-password"),
		Parser: productparse.NewService(lists, textsplit.Extractor{}),
		Idem:   memidempotency.NewStore(),
		Log:    log,
		Now:    clk.Now,
	}
	verifier := session.NewVerifier(provider, provider, log)
	metrics := NewMetrics(nil)
	h := NewRouter(srv, RouterOptions{
		AuthMiddleware: NewAuthMiddleware(verifier, srv.Cookies, log),
		Metrics:        metrics,
		Logger:         log,
	})
	return &testEnv{h: h, srv: srv, provider: provider, clk: clk, metrics: metrics}
}

// signIn registers email and returns a live access token.
func (e *testEnv) signIn(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := e.provider.SignUp(ctx, email, "secret-password"); err != nil {
		t.Fatalf("SignUp(%s): %v", email, err)
	}
	sess, err := e.provider.SignInWithPassword(ctx, email, "secret-password")
	if err != nil {
		t.Fatalf("SignInWithPassword(%s): %v", email, err)
	}
	return sess.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v body=%s", v, err, rec.Body.String())
	}
	return v
}

func (e *testEnv) createList(t *testing.T, token, title string) listDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/client/shopping-lists/create", token, map[string]string{"title": title})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create list status=%d body=%s", rec.Code, rec.Body.String())
	}
	return decode[listDTO](t, rec)
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string][]*http.Cookie {
	out := map[string][]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = append(out[c.Name], c)
	}
	return out
}
