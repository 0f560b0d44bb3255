package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// Headers set by the upstream auth proxy
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type userContextKey struct{}

// IdentityMiddleware copies the proxy's identity headers into the request
// context. Requests without them pass through anonymously.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		user := &entities.User{
			ID:   id,
			Role: strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser returns a context carrying user
func WithUser(ctx context.Context, user *entities.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// HeaderIdentity resolves the caller from the request context
type HeaderIdentity struct{}

var _ providers.IdentityProvider = HeaderIdentity{}

// CurrentUser returns the user stored by IdentityMiddleware
func (HeaderIdentity) CurrentUser(ctx context.Context) (*entities.User, error) {
	user, ok := ctx.Value(userContextKey{}).(*entities.User)
	if !ok || user == nil {
		return nil, apperrors.NewUnauthorizedError("no authenticated user")
	}
	return user, nil
}
