package httpapi

import (
	"context"

	"github.com/shoplist-app/shoplist-api/internal/domain"
)

// RequestAuth is the authentication state of a single request.
type RequestAuth struct {
	User            domain.User
	IsAuthenticated bool
}

type authKey struct{}

func WithAuth(ctx context.Context, a RequestAuth) context.Context {
	return context.WithValue(ctx, authKey{}, a)
}

func AuthFromContext(ctx context.Context) (RequestAuth, bool) {
	a, ok := ctx.Value(authKey{}).(RequestAuth)
	return a, ok && a.IsAuthenticated && a.User.ID != ""
}
