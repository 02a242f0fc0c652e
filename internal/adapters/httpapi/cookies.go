package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/app/session"
	"github.com/shoplist-app/shoplist-api/internal/domain"
)

const (
	CookieAuthToken    = "authToken"
	CookieAccessToken  = "sb-access-token"
	CookieRefreshToken = "sb-refresh-token"
	// CookieRememberMe marks a persistent session so refreshed cookies keep their lifetime.
	CookieRememberMe = "sb-remember-me"

	rememberMeMaxAge = 30 * 24 * time.Hour
)

// CookieOptions controls the attributes of session cookies.
type CookieOptions struct {
	// Secure is false only for local plain-HTTP development.
	Secure bool
}

// credentialsFromRequest reads the access token from the Authorization header, then the
// authToken cookie, then the provider cookie. The refresh token only comes from its cookie.
func credentialsFromRequest(r *http.Request) session.Credentials {
	var c session.Credentials
	if authz := r.Header.Get("Authorization"); authz != "" {
		const prefix = "Bearer "
		if len(authz) > len(prefix) && strings.EqualFold(authz[:len(prefix)], prefix) {
			c.AccessToken = strings.TrimSpace(authz[len(prefix):])
		}
	}
	if c.AccessToken == "" {
		c.AccessToken = cookieValue(r, CookieAuthToken)
	}
	if c.AccessToken == "" {
		c.AccessToken = cookieValue(r, CookieAccessToken)
	}
	c.RefreshToken = cookieValue(r, CookieRefreshToken)
	return c
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (o CookieOptions) setSession(w http.ResponseWriter, s domain.Session, rememberMe bool) {
	maxAge := 0
	if rememberMe {
		maxAge = int(rememberMeMaxAge / time.Second)
	}
	http.SetCookie(w, o.cookie(CookieAuthToken, s.AccessToken, maxAge))
	http.SetCookie(w, o.cookie(CookieAccessToken, s.AccessToken, maxAge))
	if s.RefreshToken != "" {
		http.SetCookie(w, o.cookie(CookieRefreshToken, s.RefreshToken, maxAge))
	}
	if rememberMe {
		http.SetCookie(w, o.cookie(CookieRememberMe, "1", maxAge))
	} else {
		http.SetCookie(w, o.cookie(CookieRememberMe, "", -1))
	}
}

// rememberedSession reports whether the request carries a persistent session.
func rememberedSession(r *http.Request) bool {
	return cookieValue(r, CookieRememberMe) == "1"
}

// clearSession expires every session cookie, each exactly once.
func (o CookieOptions) clearSession(w http.ResponseWriter) {
	for _, name := range []string{CookieAuthToken, CookieAccessToken, CookieRefreshToken, CookieRememberMe} {
		http.SetCookie(w, o.cookie(name, "", -1))
	}
}

func (o CookieOptions) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
