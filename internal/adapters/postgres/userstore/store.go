package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/shoplist-app/shoplist-api/internal/adapters/postgres"
	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/userstore"
)

// Store is a Postgres implementation of userstore.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, u userstore.User) error {
	if s.pool == nil {
		return postgres.ErrNilPool
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, is_admin, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt.UTC(), u.LastLoginAt)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return userstore.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id domain.UserID) (userstore.User, error) {
	if s.pool == nil {
		return userstore.User{}, postgres.ErrNilPool
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return userstore.User{}, userstore.ErrNotFound
	}
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, is_admin, created_at, last_login_at
		FROM users
		WHERE id = $1
	`, uid))
}

func (s *Store) GetByEmail(ctx context.Context, email string) (userstore.User, error) {
	if s.pool == nil {
		return userstore.User{}, postgres.ErrNilPool
	}
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, is_admin, created_at, last_login_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email))
}

func (s *Store) TouchLastLogin(ctx context.Context, id domain.UserID, at time.Time) error {
	if s.pool == nil {
		return postgres.ErrNilPool
	}
	return s.exec(ctx, id, `UPDATE users SET last_login_at = $2 WHERE id = $1`, at.UTC())
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id domain.UserID, hash []byte) error {
	if s.pool == nil {
		return postgres.ErrNilPool
	}
	return s.exec(ctx, id, `UPDATE users SET password_hash = $2 WHERE id = $1`, hash)
}

func (s *Store) exec(ctx context.Context, id domain.UserID, sql string, arg any) error {
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return userstore.ErrNotFound
	}
	ct, err := s.pool.Exec(ctx, sql, uid, arg)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return userstore.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (userstore.User, error) {
	var (
		id uuid.UUID
		u  userstore.User
	)
	if err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.LastLoginAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userstore.User{}, userstore.ErrNotFound
		}
		return userstore.User{}, err
	}
	u.ID = domain.UserID(id.String())
	u.CreatedAt = u.CreatedAt.UTC()
	if u.LastLoginAt != nil {
		v := u.LastLoginAt.UTC()
		u.LastLoginAt = &v
	}
	return u, nil
}
