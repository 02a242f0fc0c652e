package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/identity"
)

func TestCreateList_TitleLengthBoundaries(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")

	cases := []struct {
		name  string
		title string
		want  int
	}{
		{name: "empty", title: "", want: http.StatusBadRequest},
		{name: "blank", title: "   ", want: http.StatusBadRequest},
		{name: "one", title: "a", want: http.StatusCreated},
		{name: "max", title: strings.Repeat("b", 255), want: http.StatusCreated},
		{name: "max multibyte", title: strings.Repeat("ż", 255), want: http.StatusCreated},
		{name: "too long", title: strings.Repeat("c", 256), want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := env.do(t, http.MethodPost, "/api/client/shopping-lists/create", token, map[string]string{"title": tc.title})
		if rec.Code != tc.want {
			t.Fatalf("%s: status=%d, want %d body=%s", tc.name, rec.Code, tc.want, rec.Body.String())
		}
		if tc.want == http.StatusBadRequest {
			er := decode[ErrorResponse](t, rec)
			if er.Code != CodeValidation || er.Details["title"] == "" {
				t.Fatalf("%s: error=%+v", tc.name, er)
			}
		}
	}
}

func TestCreateList_DuplicateTitleIs409(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")

	env.createList(t, token, "Groceries")
	rec := env.do(t, http.MethodPost, "/api/client/shopping-lists/create", token, map[string]string{"title": "  groceries "})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d, want 409", rec.Code)
	}
	if er := decode[ErrorResponse](t, rec); er.Code != string(shoppinglists.KindDuplicateTitle) {
		t.Fatalf("code=%q", er.Code)
	}
}

func TestAddItem_NameBoundariesAndDefaultPurchased(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")
	l := env.createList(t, token, "Groceries")
	itemsPath := "/api/client/shopping-lists/" + l.ID + "/items"

	cases := []struct {
		name string
		item string
		want int
	}{
		{name: "empty", item: "", want: http.StatusBadRequest},
		{name: "one", item: "x", want: http.StatusCreated},
		{name: "max", item: strings.Repeat("y", 128), want: http.StatusCreated},
		{name: "too long", item: strings.Repeat("z", 129), want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := env.do(t, http.MethodPost, itemsPath, token, map[string]string{"itemName": tc.item})
		if rec.Code != tc.want {
			t.Fatalf("%s: status=%d, want %d body=%s", tc.name, rec.Code, tc.want, rec.Body.String())
		}
	}

	rec := env.do(t, http.MethodPost, itemsPath, token, `{"itemName":"Milk"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	it := decode[itemDTO](t, rec)
	if it.ItemName != "Milk" || it.Purchased || it.ShoppingListID != l.ID {
		t.Fatalf("item=%+v", it)
	}

	rec = env.do(t, http.MethodGet, "/api/client/shopping-lists/"+l.ID, token, nil)
	d := decode[listDetailsDTO](t, rec)
	if len(d.Items) != 3 {
		t.Fatalf("stored items=%+v", d.Items)
	}
	for _, stored := range d.Items {
		if stored.Purchased {
			t.Fatalf("item %q stored as purchased", stored.ItemName)
		}
	}
}

func TestUpdateItem_PatchSemantics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")
	l := env.createList(t, token, "Groceries")
	rec := env.do(t, http.MethodPost, "/api/client/shopping-lists/"+l.ID+"/items", token, map[string]string{"itemName": "Milk"})
	it := decode[itemDTO](t, rec)
	itemPath := "/api/client/shopping-lists/" + l.ID + "/items/" + it.ID

	rec = env.do(t, http.MethodPut, itemPath, token, `{"purchased":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decode[itemDTO](t, rec); !got.Purchased || got.ItemName != "Milk" {
		t.Fatalf("updated=%+v", got)
	}

	for name, body := range map[string]string{
		"null name": `{"itemName":null}`,
		"empty":     `{}`,
		"too long":  `{"itemName":"` + strings.Repeat("n", 129) + `"}`,
	} {
		if rec := env.do(t, http.MethodPut, itemPath, token, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d, want 400", name, rec.Code)
		}
	}

	if rec := env.do(t, http.MethodDelete, itemPath, token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, itemPath, token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rec.Code)
	}
}

func TestCrossOwnerAccessIsNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	owner := env.signIn(t, "owner@example.com")
	intruder := env.signIn(t, "intruder@example.com")

	l := env.createList(t, owner, "Private")
	rec := env.do(t, http.MethodPost, "/api/client/shopping-lists/"+l.ID+"/items", owner, map[string]string{"itemName": "Milk"})
	it := decode[itemDTO](t, rec)
	base := "/api/client/shopping-lists/" + l.ID

	reqs := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, base, nil},
		{http.MethodPut, base, map[string]string{"title": "Mine"}},
		{http.MethodDelete, base, nil},
		{http.MethodGet, base + "/items", nil},
		{http.MethodPost, base + "/items", map[string]string{"itemName": "Eggs"}},
		{http.MethodPut, base + "/items/" + it.ID, map[string]bool{"purchased": true}},
		{http.MethodDelete, base + "/items/" + it.ID, nil},
		{http.MethodPost, "/api/shopping-lists/" + l.ID + "/ai-parse", map[string]string{"text": "milk"}},
	}
	for _, rq := range reqs {
		rec := env.do(t, rq.method, rq.path, intruder, rq.body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s status=%d, want 404 body=%s", rq.method, rq.path, rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "Private") || strings.Contains(rec.Body.String(), "Milk") {
			t.Fatalf("%s %s leaked the resource: %s", rq.method, rq.path, rec.Body.String())
		}
	}

	rec = env.do(t, http.MethodGet, "/api/client/shopping-lists", intruder, nil)
	if got := decode[map[string][]listDTO](t, rec); len(got["lists"]) != 0 {
		t.Fatalf("intruder sees lists: %+v", got)
	}
	rec = env.do(t, http.MethodGet, base, owner, nil)
	if d := decode[listDetailsDTO](t, rec); d.Title != "Private" || len(d.Items) != 1 || d.Items[0].Purchased {
		t.Fatalf("owner view=%+v", d)
	}
}

func TestInvalidUUIDIs400(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")

	for _, path := range []string{
		"/api/client/shopping-lists/not-a-uuid",
		"/api/client/shopping-lists/123/items",
	} {
		rec := env.do(t, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("GET %s status=%d, want 400", path, rec.Code)
		}
		if er := decode[ErrorResponse](t, rec); er.Code != string(shoppinglists.KindInvalidUUID) {
			t.Fatalf("GET %s code=%q", path, er.Code)
		}
	}
}

func TestListLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")

	l := env.createList(t, token, " Weekend  ")
	if l.Title != "Weekend" {
		t.Fatalf("title=%q, want trimmed", l.Title)
	}
	rec := env.do(t, http.MethodPut, "/api/client/shopping-lists/"+l.ID, token, map[string]string{"title": "Weekend BBQ"})
	if rec.Code != http.StatusOK || decode[listDTO](t, rec).Title != "Weekend BBQ" {
		t.Fatalf("rename status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodDelete, "/api/client/shopping-lists/"+l.ID, token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/client/shopping-lists/"+l.ID, token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", rec.Code)
	}
}

func TestCreateList_IdempotentReplay(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")
	body := map[string]string{"title": "Groceries"}

	first := env.do(t, http.MethodPost, "/api/client/shopping-lists/create", token, body, headerIdempotencyKey, "k-1")
	second := env.do(t, http.MethodPost, "/api/client/shopping-lists/create", token, body, headerIdempotencyKey, "k-1")
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("status=%d/%d, want 201/201", first.Code, second.Code)
	}
	if second.Header().Get(headerReplayed) != "true" || first.Body.String() != second.Body.String() {
		t.Fatalf("second response not replayed: %s vs %s", first.Body.String(), second.Body.String())
	}

	other := env.do(t, http.MethodPost, "/api/client/shopping-lists/create", token, map[string]string{"title": "Other"}, headerIdempotencyKey, "k-1")
	if other.Code != http.StatusConflict {
		t.Fatalf("reused key status=%d, want 409", other.Code)
	}
}

func TestAIParse(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")
	l := env.createList(t, token, "Dinner")
	path := "/api/shopping-lists/" + l.ID + "/ai-parse"

	rec := env.do(t, http.MethodPost, path, token, map[string]string{"text": "2 eggs\nmilk, Milk; flour"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[map[string][]productDTO](t, rec)["products"]
	if len(got) != 3 || got[0].Name != "eggs" || got[1].Name != "milk" || got[2].Name != "flour" {
		t.Fatalf("products=%+v", got)
	}

	if rec := env.do(t, http.MethodPost, path, token, map[string]string{"text": strings.Repeat("a", 2001)}); rec.Code != http.StatusBadRequest {
		t.Fatalf("long text status=%d, want 400", rec.Code)
	}
}

func TestUsersMe(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	token := env.signIn(t, "ala@example.com")

	rec := env.do(t, http.MethodGet, "/api/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	u := decode[userDTO](t, rec)
	if u.Email != "ala@example.com" || u.ID == "" || u.CreatedAt == nil || u.LastLoginAt == nil || u.IsAdmin {
		t.Fatalf("me=%+v", u)
	}
}

func TestLogin_SetsSessionCookies(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})
	if _, err := env.provider.SignUp(context.Background(), "ala@example.com", "secret-password"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ALA@example.com", "password": "secret-password", "rememberMe": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if u := decode[sessionUserDTO](t, rec); u.Email != "ala@example.com" {
		t.Fatalf("user=%+v", u)
	}
	cs := cookiesByName(rec)
	for _, name := range []string{CookieAuthToken, CookieAccessToken, CookieRefreshToken, CookieRememberMe} {
		if len(cs[name]) != 1 || cs[name][0].Value == "" || cs[name][0].MaxAge != 30*24*60*60 {
			t.Fatalf("cookie %s=%+v", name, cs[name])
		}
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ala@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status=%d, want 401", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "not-an-email", "password": "x"})
	if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Details["email"] == "" {
		t.Fatalf("invalid email status=%d body=%s", rec.Code, rec.Body.String())
	}
}

type failingSignOut struct{ identity.Provider }

func (failingSignOut) SignOut(context.Context, string) error {
	return errors.New("provider unreachable")
}

func TestLogout_Always204AndClearsCookiesOnce(t *testing.T) {
	t.Parallel()

	for name, opts := range map[string]envOptions{
		"ok":             {},
		"provider error": {wrap: func(p identity.Provider) identity.Provider { return failingSignOut{p} }},
	} {
		env := newTestEnv(t, opts)
		token := env.signIn(t, "ala@example.com")

		rec := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: status=%d, want 204", name, rec.Code)
		}
		cs := cookiesByName(rec)
		for _, c := range []string{CookieAccessToken, CookieRefreshToken} {
			if len(cs[c]) != 1 || cs[c][0].MaxAge >= 0 || cs[c][0].Value != "" {
				t.Fatalf("%s: cookie %s=%+v, want cleared exactly once", name, c, cs[c])
			}
		}
	}

	env := newTestEnv(t, envOptions{})
	env.srv.Auth = nil
	if rec := env.do(t, http.MethodPost, "/api/auth/logout", "", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("no auth service status=%d, want 500", rec.Code)
	}
}

type failingReset struct{ identity.Provider }

func (failingReset) ResetPasswordForEmail(context.Context, string, string) error {
	return errors.New("mailer down")
}

func TestRequestReset_IdenticalResponses(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envOptions{})
	env.signIn(t, "ala@example.com")
	broken := newTestEnv(t, envOptions{wrap: func(p identity.Provider) identity.Provider { return failingReset{p} }})

	existing := env.do(t, http.MethodPost, "/api/auth/request-reset", "", map[string]string{"email": "ala@example.com"})
	missing := env.do(t, http.MethodPost, "/api/auth/request-reset", "", map[string]string{"email": "nobody@example.com"})
	failed := broken.do(t, http.MethodPost, "/api/auth/request-reset", "", map[string]string{"email": "ala@example.com"})

	for name, rec := range map[string]int{"existing": existing.Code, "missing": missing.Code, "failed": failed.Code} {
		if rec != http.StatusOK {
			t.Fatalf("%s: status=%d, want 200", name, rec)
		}
	}
	if existing.Body.String() != missing.Body.String() || existing.Body.String() != failed.Body.String() {
		t.Fatalf("bodies differ:\n%s\n%s\n%s", existing.Body.String(), missing.Body.String(), failed.Body.String())
	}

	if rec := env.do(t, http.MethodPost, "/api/auth/request-reset", "", map[string]string{"email": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty email status=%d, want 400", rec.Code)
	}
}

func TestResetPassword_RejectsUnknownToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"token": "bogus", "password": "new-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"token": "bogus", "password": "short"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short password status=%d, want 400", rec.Code)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})

	body := map[string]string{"email": "new@example.com", "password": "secret-password"}
	if rec := env.do(t, http.MethodPost, "/api/auth/register", "", body); rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPost, "/api/auth/register", "", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status=%d, want 400", rec.Code)
	}
}

func TestListErrorStatus_CoversEveryKind(t *testing.T) {
	t.Parallel()

	want := map[shoppinglists.ErrorKind]int{
		shoppinglists.KindNotFound:       http.StatusNotFound,
		shoppinglists.KindForbidden:      http.StatusForbidden,
		shoppinglists.KindDuplicateTitle: http.StatusConflict,
		shoppinglists.KindInvalidUUID:    http.StatusBadRequest,
		shoppinglists.KindDatabase:       http.StatusInternalServerError,
	}
	if len(want) != len(shoppinglists.Kinds) {
		t.Fatalf("kinds=%d, mapped=%d", len(shoppinglists.Kinds), len(want))
	}
	for _, k := range shoppinglists.Kinds {
		if got := listErrorStatus(k); got != want[k] {
			t.Fatalf("listErrorStatus(%s)=%d, want %d", k, got, want[k])
		}
	}
}

func TestPagesAndHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, envOptions{})

	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz=%d %q", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/", "", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `<div id="root">`) {
		t.Fatalf("home=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/assets/app.css", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("asset=%d", rec.Code)
	}
	token := env.signIn(t, "ala@example.com")
	if rec := env.do(t, http.MethodGet, "/shopping-lists", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("protected page=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "shoplist_http_requests_total") {
		t.Fatalf("metrics=%d", rec.Code)
	}
}
