package middleware

import (
	"context"
	"net/http"
	"strings"

	"notevault-server/internal/domain"
	"notevault-server/pkg/response"
)

type contextKey string

const UserIDKey contextKey = "userID"

// CookieName is the HTTP-only cookie carrying the identity token. A bearer
// Authorization header is accepted as an alternative transport.
const CookieName = "auth_token"

// TokenResolver verifies a token and resolves it to a live user.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
}

func AuthMiddleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				response.Unauthorized(w, "missing authentication token")
				return
			}

			user, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest extracts the identity token from the auth cookie or, if
// absent, from a bearer Authorization header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}

	return ""
}

func GetUserID(r *http.Request) int64 {
	userID, ok := r.Context().Value(UserIDKey).(int64)
	if !ok {
		return 0
	}
	return userID
}
