package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"civiclens/auth"
	"civiclens/models"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserLookup resolves a user id to the current user record. Implemented by
// db.FirestoreDB and the seeded memory directory.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// AuthMiddleware validates JWT tokens and injects the user into context.
// Requests without a valid token are refused.
func AuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, jwtManager, users)
			if err != nil {
				writeError(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injects the user when a valid token is present but lets
// unauthenticated requests through. Anonymous report submission depends on
// this: a citizen without an account must still be able to file.
func OptionalAuth(jwtManager *auth.JWTManager, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authenticate(r, jwtManager, users)
			if err != nil {
				writeError(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, jwtManager *auth.JWTManager, users UserLookup) (*models.User, error) {
	token, err := auth.ExtractToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, errInvalidHeader
	}

	claims, err := jwtManager.ValidateToken(token)
	if err != nil {
		return nil, errInvalidToken
	}

	// Fetch the user from the database to get the latest role.
	user, err := users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		return nil, errUserNotFound
	}
	return user, nil
}

type authError string

func (e authError) Error() string { return string(e) }

const (
	errInvalidHeader authError = "Invalid authorization header"
	errInvalidToken  authError = "Invalid or expired token"
	errUserNotFound  authError = "User not found"
)

// GetUserFromContext retrieves the user from the request context. The second
// return is false for anonymous callers.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// RequireRole middleware checks if the user has the required role
func RequireRole(allowedRoles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r.Context())
			if !ok {
				writeError(w, "User not found in context", http.StatusUnauthorized)
				return
			}

			hasRole := false
			for _, role := range allowedRoles {
				if user.Role == role {
					hasRole = true
					break
				}
			}

			if !hasRole {
				writeError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
