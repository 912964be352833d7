package auth

import (
	"context"
	"net/http"
	"strings"

	"folio-chat/contract"
	"folio-chat/domain"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// CredentialFromRequest reads a bearer token from the Authorization header,
// or from the token query parameter for browsers that cannot set headers on upgrade.
func CredentialFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Middleware resolves the request credential and stores the identity in the context.
// Requests without a credential pass through anonymously, a bad credential is rejected.
func Middleware(resolver contract.IdentityResolver, onError func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := CredentialFromRequest(r)
			if credential == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := resolver.Resolve(r.Context(), credential)
			if err != nil {
				onError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID domain.UserID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext returns the identity stored by Middleware, empty when anonymous.
func UserIDFromContext(ctx context.Context) domain.UserID {
	userID, _ := ctx.Value(UserIDKey).(domain.UserID)
	return userID
}
