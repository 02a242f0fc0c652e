package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/domain"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("user email already exists")
)

// User is the persistence shape of a locally managed account.
type User struct {
	ID           domain.UserID
	Email        string
	PasswordHash []byte
	IsAdmin      bool

	CreatedAt   time.Time
	LastLoginAt *time.Time
}

// Store persists local accounts. Email lookups are case-insensitive.
type Store interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id domain.UserID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	TouchLastLogin(ctx context.Context, id domain.UserID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id domain.UserID, hash []byte) error
}
