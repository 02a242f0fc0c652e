package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shoplist-app/shoplist-api/internal/adapters/httpapi"
	"github.com/shoplist-app/shoplist-api/internal/adapters/localauth"
	memclock "github.com/shoplist-app/shoplist-api/internal/adapters/memory/clock"
	memidempotency "github.com/shoplist-app/shoplist-api/internal/adapters/memory/idempotency"
	memlistrepo "github.com/shoplist-app/shoplist-api/internal/adapters/memory/listrepo"
	memsessionstore "github.com/shoplist-app/shoplist-api/internal/adapters/memory/sessionstore"
	memuserstore "github.com/shoplist-app/shoplist-api/internal/adapters/memory/userstore"
	pgidempotency "github.com/shoplist-app/shoplist-api/internal/adapters/postgres/idempotency"
	pglistrepo "github.com/shoplist-app/shoplist-api/internal/adapters/postgres/listrepo"
	postgres_testutil "github.com/shoplist-app/shoplist-api/internal/adapters/postgres/testutil"
	pguserstore "github.com/shoplist-app/shoplist-api/internal/adapters/postgres/userstore"
	"github.com/shoplist-app/shoplist-api/internal/adapters/textsplit"
	"github.com/shoplist-app/shoplist-api/internal/app/auth"
	"github.com/shoplist-app/shoplist-api/internal/app/productparse"
	"github.com/shoplist-app/shoplist-api/internal/app/session"
	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
	"github.com/shoplist-app/shoplist-api/internal/platform/logging"
	idempotencyport "github.com/shoplist-app/shoplist-api/internal/ports/out/idempotency"
	listrepoport "github.com/shoplist-app/shoplist-api/internal/ports/out/listrepo"
	userstoreport "github.com/shoplist-app/shoplist-api/internal/ports/out/userstore"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	srv     *httptest.Server
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	log := logging.Discard()
	clk := memclock.NewManualClock(time.Now().UTC())

	var (
		listRepo  listrepoport.Repository
		users     userstoreport.Store
		idemStore idempotencyport.Store
	)
	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		listRepo = pglistrepo.NewRepo(pool)
		users = pguserstore.NewStore(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		listRepo = memlistrepo.NewRepo()
		users = memuserstore.NewStore()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	provider := localauth.NewProvider(users, memsessionstore.NewStore(clk.Now), clk, log, localauth.Options{BcryptCost: bcrypt.MinCost})
	lists := shoppinglists.NewService(listRepo, clk)
	api := &httpapi.Server{
		Lists:  lists,
		Auth:   auth.NewService(provider, log, ""),
		Parser: productparse.NewService(lists, textsplit.Extractor{}),
		Idem:   idemStore,
		Log:    log,
	}
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewAuthMiddleware(session.NewVerifier(provider, provider, log), api.Cookies, log),
		Logger:         log,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{baseURL: srv.URL, srv: srv}
}

// client returns a browser-like client: its own cookie jar and no redirect following.
func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	c := s.srv.Client()
	c.Jar = jar
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Code != wantCode {
		t.Fatalf("code=%q want=%q body=%s", got.Code, wantCode, string(body))
	}
}
