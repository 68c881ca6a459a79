package middleware

import (
	"context"
	"net/http"
	"strings"

	"cartsession-backend/internal/domain"
	"cartsession-backend/pkg/utils"
)

func tokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}

func userFromToken(tokenString string) *domain.User {
	claims, err := utils.ValidateJWT(tokenString)
	if err != nil {
		return nil
	}

	// Partial user from token claims; no DB hit per request. Role changes
	// mid-session are invisible until the token rolls over.
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &domain.User{
		ID:    sub,
		Email: email,
		Role:  role,
	}
}

// AuthMiddleware rejects requests without a valid session token. Only the
// login/logout transition endpoints require it.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
			return
		}

		user := userFromToken(tokenString)
		if user == nil {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), domain.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the user when a valid token is present and lets
// guests through otherwise. Cart routes serve both modes; which backing
// store answers is the session facade's decision, not the router's.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenString := tokenFromRequest(r); tokenString != "" {
			if user := userFromToken(tokenString); user != nil {
				ctx := context.WithValue(r.Context(), domain.UserContextKey, user)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}
