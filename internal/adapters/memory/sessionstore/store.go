package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/ports/out/sessionstore"
)

// Store is an in-memory implementation of sessionstore.Store.
// It is safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	m   map[string]sessionstore.Record
	now func() time.Time
}

// NewStore returns a store that expires records against now (wall clock when nil).
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{m: make(map[string]sessionstore.Record), now: now}
}

func (s *Store) Put(ctx context.Context, token string, rec sessionstore.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[token] = rec
	return nil
}

func (s *Store) Get(ctx context.Context, token string) (sessionstore.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[token]
	if !ok {
		return sessionstore.Record{}, false, nil
	}
	if !s.now().Before(rec.ExpiresAt) {
		delete(s.m, token)
		return sessionstore.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, token)
	return nil
}
