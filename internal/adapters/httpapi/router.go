package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	// AuthMiddleware classifies requests and enforces sessions. Nil leaves every route open,
	// which is only useful in handler tests.
	AuthMiddleware func(http.Handler) http.Handler

	Metrics            *Metrics
	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// NewRouter constructs the HTTP router: base middleware, then authorization, then routes.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if s.Log == nil {
		s.Log = log
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestIDHeader)
	r.Use(middleware.RealIP)
	r.Use(tracingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(NewLoggingMiddleware(log))
	r.Use(NewRecoveryMiddleware(log))
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", headerIdempotencyKey},
			ExposedHeaders:   []string{middleware.RequestIDHeader, headerReplayed},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if opts.AuthMiddleware != nil {
		r.Use(opts.AuthMiddleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Method(http.MethodGet, "/assets/*", assetsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/register", s.register)
			r.Post("/logout", s.logout)
			r.Post("/request-reset", s.requestReset)
			r.Post("/reset-password", s.resetPassword)
		})
		r.Get("/users/me", s.me)

		r.Route("/client/shopping-lists", func(r chi.Router) {
			r.Get("/", s.listLists)
			r.With(s.idempotent("POST /api/client/shopping-lists/create")).Post("/create", s.createList)
			r.Route("/{listId}", func(r chi.Router) {
				r.Get("/", s.getList)
				r.Put("/", s.updateList)
				r.Delete("/", s.deleteList)
				r.Get("/items", s.listItems)
				r.With(s.idempotent("POST /api/client/shopping-lists/{listId}/items")).Post("/items", s.addItem)
				r.Put("/items/{itemId}", s.updateItem)
				r.Delete("/items/{itemId}", s.deleteItem)
			})
		})
		r.Post("/shopping-lists/{listId}/ai-parse", s.aiParse)
	})

	shell := pageShell()
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/api" || strings.HasPrefix(req.URL.Path, "/api/") || req.Method != http.MethodGet {
			writeError(w, req, http.StatusNotFound, "NOT_FOUND", "Nie znaleziono zasobu", nil)
			return
		}
		shell(w, req)
	})
	return r
}
