package idempotency

import (
	"context"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes.
//
// Strategy: key + route + user + request body hash.
// Route is represented as HTTP method + path template (e.g. "POST /api/client/shopping-lists/create").
// A record with an empty BodyHash stores the hash of the first body seen for the key.
type Fingerprint struct {
	Key      Key
	UserID   domain.UserID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}

// Pruner is implemented by stores whose expired records must be deleted explicitly.
type Pruner interface {
	Prune(ctx context.Context) (removed int64, err error)
}
