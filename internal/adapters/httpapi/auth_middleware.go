package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
)

// TokenVerifier checks a raw bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (domain.Claims, error)
}

// NewAuthMiddleware resolves Authorization: Bearer <JWT> into an AuthState.
//
// It never rejects a request. A missing, malformed or invalid token yields
// Unauthorized and the use case decides what that caller may do.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := domain.Unauthorized()
			if raw, ok := bearerToken(r); ok {
				claims, err := v.Verify(r.Context(), raw)
				if err == nil {
					state = domain.Authorized(claims)
				} else {
					logger.From(r.Context()).Debug("token rejected", logger.Err(err))
				}
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), state)))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// The subject comes from X-Debug-Subject, falling back to defaultSubject.
// With neither set the caller is Unauthorized. Do NOT use this in production.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			state := domain.Unauthorized()
			if sub != "" {
				state = domain.Authorized(domain.Claims{Subject: domain.SubjectID(sub), Issuer: "dev"})
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), state)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	return raw, raw != ""
}

func withCaller(ctx context.Context, state domain.AuthState) context.Context {
	ctx = WithAuthState(ctx, state)
	if c, ok := state.Claims(); ok {
		ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.Subject(string(c.Subject))))
	}
	return ctx
}
