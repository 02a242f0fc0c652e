package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shoplist-app/shoplist-api/internal/app/session"
)

// RouteClass decides how the authorization middleware treats a path.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteAuthOnly
	RouteLogout
	RouteProtectedAPI
	RouteProtectedPage
)

func (c RouteClass) String() string {
	switch c {
	case RoutePublic:
		return "public"
	case RouteAuthOnly:
		return "auth-only"
	case RouteLogout:
		return "logout"
	case RouteProtectedAPI:
		return "protected-api"
	case RouteProtectedPage:
		return "protected-page"
	default:
		return "unknown"
	}
}

const (
	loginPath = "/login"
	homePath  = "/"

	msgAuthRequired = "Wymagane uwierzytelnienie"
)

var (
	publicPaths = map[string]bool{
		"/":            true,
		"/about":       true,
		"/healthz":     true,
		"/metrics":     true,
		"/favicon.ico": true,
	}
	authOnlyPaths = map[string]bool{
		"/login":               true,
		"/register":            true,
		"/reset-password":      true,
		"/auth/login":          true,
		"/auth/register":       true,
		"/auth/reset-password": true,
	}
	logoutPaths = map[string]bool{
		"/logout":      true,
		"/auth/logout": true,
	}
)

// Classify maps a request path to its RouteClass.
func Classify(path string) RouteClass {
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	switch {
	case publicPaths[path], strings.HasPrefix(path, "/assets/"):
		return RoutePublic
	case path == "/api/auth" || strings.HasPrefix(path, "/api/auth/"):
		return RoutePublic
	case authOnlyPaths[path]:
		return RouteAuthOnly
	case logoutPaths[path]:
		return RouteLogout
	case path == "/api" || strings.HasPrefix(path, "/api/"):
		return RouteProtectedAPI
	default:
		return RouteProtectedPage
	}
}

// NewAuthMiddleware classifies every request and enforces the session requirement of its
// class. Verified users are stored in the request context as RequestAuth. A nil verifier
// or any verification failure counts as unauthenticated.
func NewAuthMiddleware(v *session.Verifier, cookies CookieOptions, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := Classify(r.URL.Path)
			switch class {
			case RoutePublic:
				next.ServeHTTP(w, r)
				return
			case RouteLogout:
				cookies.clearSession(w)
				next.ServeHTTP(w, r)
				return
			}

			creds := credentialsFromRequest(r)
			res := session.Result{Reason: session.ReasonNoCredentials}
			if v != nil {
				res = v.Resolve(r.Context(), creds)
			}
			switch {
			case res.OK && res.Refreshed != nil:
				cookies.setSession(w, *res.Refreshed, rememberedSession(r))
			case !res.OK && res.Reason == session.ReasonInvalidToken:
				cookies.clearSession(w)
			}
			if !res.OK && res.Reason == session.ReasonProviderError {
				log.WarnContext(r.Context(), "treating request as unauthenticated", "path", r.URL.Path, "class", class.String())
			}

			ctx := r.Context()
			if res.OK {
				ctx = WithAuth(ctx, RequestAuth{User: res.User, IsAuthenticated: true})
			}

			switch class {
			case RouteAuthOnly:
				if res.OK {
					noteAuthRejected(r, class)
					http.Redirect(w, r, homePath, http.StatusFound)
					return
				}
			case RouteProtectedAPI:
				if !res.OK {
					noteAuthRejected(r, class)
					writeError(w, r, http.StatusUnauthorized, "", msgAuthRequired, nil)
					return
				}
			case RouteProtectedPage:
				if !res.OK {
					noteAuthRejected(r, class)
					http.Redirect(w, r, loginPath, http.StatusFound)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
