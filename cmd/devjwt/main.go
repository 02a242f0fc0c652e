package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoplist-app/shoplist-api/internal/platform/auth/jwks_testutil"
	"github.com/shoplist-app/shoplist-api/internal/platform/logging"
)

// Tiny dev-only token issuer and JWKS server.
//
// It is not an identity provider. It exists so TOKEN_VERIFY_MODE=jwks can be exercised
// locally: point JWT_JWKS_URL at /.well-known/jwks.json and JWT_ISSUER at ISSUER.

func main() {
	log := logging.New(os.Stderr, getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "text"))

	port := getenv("PORT", "5556")
	issuer := getenv("ISSUER", "http://localhost:5556/auth/v1")
	audience := getenv("AUDIENCE", "authenticated")
	kid := getenv("KID", "dev-kid-1")
	ttl := getenvDuration("TTL", 30*time.Minute)

	kp, err := jwks_testutil.GenerateRSAKeypair(kid)
	if err != nil {
		log.Error("generate key", "error", err)
		os.Exit(1)
	}
	jwksJSON := jwks_testutil.JWKSJSON([]jwks_testutil.Keypair{kp})

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON)
	})

	// Mint a token:
	//   GET /token?email=ala@example.com[&sub=<uuid>][&role=admin]
	mux.HandleFunc("GET /token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sub := strings.TrimSpace(q.Get("sub"))
		if sub == "" {
			sub = uuid.NewString()
		} else if _, err := uuid.Parse(sub); err != nil {
			http.Error(w, "sub must be a uuid", http.StatusBadRequest)
			return
		}

		now := time.Now().UTC()
		token, err := jwks_testutil.MintRS256JWT(kp, jwks_testutil.TokenSpec{
			Issuer:    issuer,
			Audience:  []string{audience},
			Subject:   sub,
			Email:     strings.TrimSpace(q.Get("email")),
			AppRole:   strings.TrimSpace(q.Get("role")),
			Now:       now,
			ExpiresIn: ttl,
		})
		if err != nil {
			log.Error("mint token", "error", err)
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   issuer,
			"aud":   audience,
			"exp":   now.Add(ttl).Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("devjwt listening", "port", port, "iss", issuer, "aud", audience, "kid", kid, "ttl", ttl)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("listen", "error", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
