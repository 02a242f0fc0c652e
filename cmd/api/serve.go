package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/shoplist-app/shoplist-api/internal/adapters/gemini"
	"github.com/shoplist-app/shoplist-api/internal/adapters/httpapi"
	"github.com/shoplist-app/shoplist-api/internal/adapters/localauth"
	memidempotency "github.com/shoplist-app/shoplist-api/internal/adapters/memory/idempotency"
	memlistrepo "github.com/shoplist-app/shoplist-api/internal/adapters/memory/listrepo"
	memsessionstore "github.com/shoplist-app/shoplist-api/internal/adapters/memory/sessionstore"
	memuserstore "github.com/shoplist-app/shoplist-api/internal/adapters/memory/userstore"
	postgres "github.com/shoplist-app/shoplist-api/internal/adapters/postgres"
	pgidempotency "github.com/shoplist-app/shoplist-api/internal/adapters/postgres/idempotency"
	pglistrepo "github.com/shoplist-app/shoplist-api/internal/adapters/postgres/listrepo"
	pguserstore "github.com/shoplist-app/shoplist-api/internal/adapters/postgres/userstore"
	redisadapter "github.com/shoplist-app/shoplist-api/internal/adapters/redis"
	redissessionstore "github.com/shoplist-app/shoplist-api/internal/adapters/redis/sessionstore"
	"github.com/shoplist-app/shoplist-api/internal/adapters/supabase"
	"github.com/shoplist-app/shoplist-api/internal/adapters/textsplit"
	"github.com/shoplist-app/shoplist-api/internal/app/auth"
	"github.com/shoplist-app/shoplist-api/internal/app/productparse"
	"github.com/shoplist-app/shoplist-api/internal/app/session"
	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
	"github.com/shoplist-app/shoplist-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/shoplist-app/shoplist-api/internal/platform/clock"
	"github.com/shoplist-app/shoplist-api/internal/platform/config"
	"github.com/shoplist-app/shoplist-api/internal/platform/logging"
	idempotencyport "github.com/shoplist-app/shoplist-api/internal/ports/out/idempotency"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/identity"
	listrepoport "github.com/shoplist-app/shoplist-api/internal/ports/out/listrepo"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/productextractor"
	sessionstoreport "github.com/shoplist-app/shoplist-api/internal/ports/out/sessionstore"
	userstoreport "github.com/shoplist-app/shoplist-api/internal/ports/out/userstore"
)

const idempotencyPruneInterval = time.Hour

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply database migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger, migrate bool) error {
	log.Info("starting", "config", cfg.String(), "version", version)

	clk := platformclock.NewSystemClock()

	var (
		listRepo  listrepoport.Repository
		users     userstoreport.Store
		idemStore idempotencyport.Store
		closers   []io.Closer
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	switch cfg.StorageBackend {
	case config.StoragePostgres:
		if migrate {
			res, err := postgres.Migrate(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			log.Info("migrations applied", "from", res.From, "to", res.To, "changed", res.Applied())
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return err
		}
		defer pool.Close()

		listRepo = pglistrepo.NewRepo(pool)
		users = pguserstore.NewStore(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		listRepo = memlistrepo.NewRepo()
		users = memuserstore.NewStore()
		idemStore = memidempotency.NewStore()
	}

	if p, ok := idemStore.(idempotencyport.Pruner); ok {
		go pruneIdempotency(ctx, p, log)
	}

	var sessions sessionstoreport.Store
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb, err := redisadapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, rdb)
		sessions = redissessionstore.NewStore(rdb)
	default:
		sessions = memsessionstore.NewStore(clk.Now)
	}

	var provider identity.Provider
	switch cfg.AuthProvider {
	case config.AuthProviderSupabase:
		provider = supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	default:
		log.Warn("using local identity provider; not for production")
		provider = localauth.NewProvider(users, sessions, clk, log, localauth.Options{AccessTTL: cfg.SessionTTL})
	}

	var tokens session.TokenVerifier = provider
	if cfg.TokenVerifyMode == config.VerifyModeJWKS {
		tokens = jwtverifier.New(cfg.JWT)
	}
	verifier := session.NewVerifier(tokens, provider, log)

	var extractor productextractor.Extractor = textsplit.Extractor{}
	if cfg.GeminiAPIKey != "" {
		gc, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("gemini client: %w", err)
		}
		closers = append(closers, gc)
		extractor = gemini.NewExtractor(gc)
	} else {
		log.Info("GEMINI_API_KEY not set; ai-parse falls back to line splitting")
	}

	lists := shoppinglists.NewService(listRepo, clk)
	api := &httpapi.Server{
		Lists:   lists,
		Auth:    auth.NewService(provider, log, cfg.PasswordResetRedirectURL),
		Parser:  productparse.NewService(lists, extractor),
		Idem:    idemStore,
		Cookies: httpapi.CookieOptions{Secure: cfg.CookieSecure},
		Log:     log,
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware:     httpapi.NewAuthMiddleware(verifier, api.Cookies, log),
		Metrics:            httpapi.NewMetrics(reg),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// pruneIdempotency deletes expired idempotency records until ctx is done.
func pruneIdempotency(ctx context.Context, store idempotencyport.Pruner, log *slog.Logger) {
	t := time.NewTicker(idempotencyPruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.Prune(ctx)
			if err != nil {
				log.Warn("idempotency prune failed", "error", err)
				continue
			}
			log.Debug("idempotency keys pruned", "count", n)
		}
	}
}
