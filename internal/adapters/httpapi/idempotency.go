package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/shoplist-app/shoplist-api/internal/ports/out/idempotency"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255
)

// idempotent replays the stored 2xx response for a retried request carrying the same
// Idempotency-Key, route, user and body. Reusing a key with a different body is a 409.
func (s *Server) idempotent(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
			ra, authed := AuthFromContext(r.Context())
			if s.Idem == nil || key == "" || !authed {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				writeError(w, r, http.StatusBadRequest, CodeValidation, msgValidation, map[string]string{headerIdempotencyKey: "Maksymalna długość to 255 znaków"})
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeError(w, r, http.StatusBadRequest, CodeValidation, msgValidation, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			bodyHash := hex.EncodeToString(sum[:])

			ctx := r.Context()
			metaFP := idempotency.Fingerprint{
				Key:    idempotency.Key(key),
				UserID: ra.User.ID,
				Method: r.Method,
				Route:  route,
			}
			meta, ok, err := s.Idem.Get(ctx, metaFP)
			if err != nil {
				writeInternal(w, r, s.Log, err)
				return
			}
			if ok {
				if string(meta.Body) != bodyHash {
					writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "Klucz idempotencji został już użyty z inną treścią", nil)
					return
				}
			} else {
				if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
					ContentType: "text/plain",
					Body:        []byte(bodyHash),
					CreatedAt:   s.now(),
				}); err != nil {
					s.Log.WarnContext(ctx, "store idempotency fingerprint", "route", route, "err", err)
				}
			}

			respFP := metaFP
			respFP.BodyHash = bodyHash
			if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
				writeInternal(w, r, s.Log, err)
				return
			} else if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 {
				w.Header().Set("Content-Type", rec.ContentType)
				w.Header().Set(headerReplayed, "true")
				w.WriteHeader(rec.StatusCode)
				_, _ = w.Write(rec.Body)
				return
			}

			cw := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)
			if cw.status >= 200 && cw.status < 300 {
				if err := s.Idem.Put(ctx, respFP, idempotency.Record{
					StatusCode:  cw.status,
					ContentType: w.Header().Get("Content-Type"),
					Body:        cw.buf.Bytes(),
					CreatedAt:   s.now(),
				}); err != nil {
					s.Log.WarnContext(ctx, "store idempotent response", "route", route, "err", err)
				}
			}
		})
	}
}

type capturingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *capturingWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}
