package httpapi

import (
	"context"

	"github.com/warikan-app/warikan-api/internal/domain"
)

type authStateKey struct{}

func WithAuthState(ctx context.Context, a domain.AuthState) context.Context {
	return context.WithValue(ctx, authStateKey{}, a)
}

// AuthStateFromContext returns the caller's auth state. A request that never
// passed an auth middleware is Unauthorized.
func AuthStateFromContext(ctx context.Context) domain.AuthState {
	if a, ok := ctx.Value(authStateKey{}).(domain.AuthState); ok {
		return a
	}
	return domain.Unauthorized()
}
