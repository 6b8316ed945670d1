package middleware

import (
	"context"
	"net/http"
	"strings"

	"easytopup/backend/internal/auth"
)

type contextKey string

const adminLoginKey contextKey = "admin_login"

func AdminLoginFromContext(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(adminLoginKey).(string)
	return val, ok
}

// AdminAuthMiddleware guards the admin API with a bearer access token.
func AdminAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing Authorization", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				http.Error(w, "invalid Authorization", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseAccessToken(secret, parts[1])
			if err != nil || !claims.IsAdmin {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), adminLoginKey, claims.Login)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
