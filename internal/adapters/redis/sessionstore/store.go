package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/sessionstore"
)

const keyPrefix = "session:"

// Store is a Redis implementation of sessionstore.Store.
// Expiry is delegated to Redis key TTLs.
type Store struct {
	rdb *goredis.Client
}

func NewStore(rdb *goredis.Client) *Store {
	return &Store{rdb: rdb}
}

type record struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
	Pair      string    `json:"pair,omitempty"`
}

func (s *Store) Put(ctx context.Context, token string, rec sessionstore.Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		// Already expired: make sure nothing stale remains.
		return s.Delete(ctx, token)
	}
	b, err := json.Marshal(record{UserID: string(rec.UserID), Kind: string(rec.Kind), ExpiresAt: rec.ExpiresAt.UTC(), Pair: rec.Pair})
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+token, b, ttl).Err()
}

func (s *Store) Get(ctx context.Context, token string) (sessionstore.Record, bool, error) {
	val, err := s.rdb.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, goredis.Nil) {
		return sessionstore.Record{}, false, nil
	}
	if err != nil {
		return sessionstore.Record{}, false, err
	}
	var r record
	if err := json.Unmarshal(val, &r); err != nil {
		return sessionstore.Record{}, false, err
	}
	if !time.Now().Before(r.ExpiresAt) {
		return sessionstore.Record{}, false, nil
	}
	return sessionstore.Record{
		UserID:    domain.UserID(r.UserID),
		Kind:      sessionstore.Kind(r.Kind),
		ExpiresAt: r.ExpiresAt,
		Pair:      r.Pair,
	}, true, nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, keyPrefix+token).Err()
}
