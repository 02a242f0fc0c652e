package sessionstore

import (
	"context"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/domain"
)

// Kind distinguishes what a stored token grants.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindReset   Kind = "reset"
)

// Record is what a token maps to.
type Record struct {
	UserID    domain.UserID
	Kind      Kind
	ExpiresAt time.Time
	// Pair is the sibling token issued with this one (refresh for access and the reverse).
	// Revoking either token revokes both.
	Pair string
}

// Store maps opaque tokens to records. Expired records must not be returned.
type Store interface {
	Put(ctx context.Context, token string, rec Record) error
	// Get returns ok=false when the token is unknown or expired.
	Get(ctx context.Context, token string) (Record, bool, error)
	Delete(ctx context.Context, token string) error
}
