package userstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/userstore"
)

// Store is an in-memory implementation of userstore.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	byID      map[domain.UserID]userstore.User
	idByEmail map[string]domain.UserID
}

func NewStore() *Store {
	return &Store{
		byID:      make(map[domain.UserID]userstore.User),
		idByEmail: make(map[string]domain.UserID),
	}
}

func (s *Store) Create(ctx context.Context, u userstore.User) error {
	_ = ctx
	key := strings.ToLower(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.idByEmail[key]; ok {
		return userstore.ErrEmailTaken
	}
	s.byID[u.ID] = cloneUser(u)
	s.idByEmail[key] = u.ID
	return nil
}

func (s *Store) GetByID(ctx context.Context, id domain.UserID) (userstore.User, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return userstore.User{}, userstore.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (userstore.User, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idByEmail[strings.ToLower(email)]
	if !ok {
		return userstore.User{}, userstore.ErrNotFound
	}
	return cloneUser(s.byID[id]), nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id domain.UserID, at time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	u.LastLoginAt = &at
	s.byID[id] = u
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id domain.UserID, hash []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	u.PasswordHash = append([]byte(nil), hash...)
	s.byID[id] = u
	return nil
}

func cloneUser(u userstore.User) userstore.User {
	out := u
	out.PasswordHash = append([]byte(nil), u.PasswordHash...)
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		out.LastLoginAt = &v
	}
	return out
}
