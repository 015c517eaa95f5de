package middlewares

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/sbilibin2017/culinary-connect/internal/logger"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/sbilibin2017/culinary-connect/internal/token"
)

// Tokener extracts the token key from a request.
type Tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
}

// Authenticator resolves a token key to its active owner.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*models.User, error)
}

type userKey struct{}

type tokenKey struct{}

// AuthMiddleware rejects requests without a valid token with 401 and
// stores the authenticated user and token key in the request context.
func AuthMiddleware(tokener Tokener, auth Authenticator) func(http.Handler) http.Handler {
	return authMiddleware(tokener, auth, true)
}

// OptionalAuthMiddleware lets requests without an Authorization header through
// anonymously. A header carrying a bad token is still rejected with 401.
func OptionalAuthMiddleware(tokener Tokener, auth Authenticator) func(http.Handler) http.Handler {
	return authMiddleware(tokener, auth, false)
}

func authMiddleware(tokener Tokener, auth Authenticator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key, err := tokener.GetTokenFromRequest(ctx, r)
			if errors.Is(err, token.ErrMissingHeader) && !required {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				logger.Log.Infow("authorization failed", "err", err)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided.")
				return
			}

			user, err := auth.Authenticate(ctx, key)
			if err != nil {
				logger.Log.Infow("authorization failed", "err", err)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user, key)))
		})
	}
}

// WithUser returns a copy of ctx carrying user and its token key.
func WithUser(ctx context.Context, user *models.User, key string) context.Context {
	ctx = context.WithValue(ctx, userKey{}, user)
	return context.WithValue(ctx, tokenKey{}, key)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey{}).(*models.User)
	return user
}

// TokenFromContext returns the token key the request was authenticated with.
func TokenFromContext(ctx context.Context) string {
	key, _ := ctx.Value(tokenKey{}).(string)
	return key
}
