package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/ports/out/clock"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/idempotency"
)

// DefaultTTL bounds how long a stored response can be replayed.
const DefaultTTL = 24 * time.Hour

// Store is an in-memory implementation of idempotency.Store.
// Records older than the TTL are treated as absent and dropped lazily.
// It is safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	m   map[idempotency.Fingerprint]idempotency.Record
	ttl time.Duration
	clk clock.Clock
}

func NewStore() *Store {
	return NewStoreWithTTL(DefaultTTL, nil)
}

// NewStoreWithTTL allows tests to control expiry; a nil clk uses the wall clock.
func NewStoreWithTTL(ttl time.Duration, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Func(func() time.Time { return time.Now().UTC() })
	}
	return &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		ttl: ttl,
		clk: clk,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if s.ttl > 0 && s.clk.Now().Sub(rec.CreatedAt) > s.ttl {
		delete(s.m, fp)
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clk.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = rec
	return nil
}
