/**
 * @description
 * Authentication middleware for the HTTP router. Bearer tokens are HS256 JWTs issued by the
 * platform's auth service; server-to-server calls authenticate with a shared internal key.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: token parsing and signature verification.
 */

package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scholarbridge/request-service/internal/domain"
)

// UserContextKey is a custom type for the context key to avoid collisions.
type UserContextKey string

const authenticatedUserKey UserContextKey = "authenticatedUser"

// JWTAuthMiddleware validates the bearer token and stores the caller's UserRef in the context.
// The subject claim carries the user id and the user_type claim carries the role.
func JWTAuthMiddleware(secret string) func(http.Handler) http.Handler {
	signingKey := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(signingKey) == 0 {
				log.Printf("level=error component=api msg=\"jwt secret not configured; rejecting request\" path=%s", r.URL.Path)
				writeErrorResponse(w, http.StatusUnauthorized, "Authentication is not configured")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Extract the token from "Bearer <token>"
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeErrorResponse(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return signingKey, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				writeErrorResponse(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			userID, _ := claims["sub"].(string)
			userType, _ := claims["user_type"].(string)
			user, err := domain.NewUserRef(userID, userType)
			if err != nil {
				writeErrorResponse(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), authenticatedUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InternalAuthMiddleware validates the internal API key for server-to-server calls.
func InternalAuthMiddleware(requiredKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiredKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Internal-API-Key")
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(requiredKey)) != 1 {
				writeErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetAuthenticatedUser retrieves the caller's identity from the request context.
func GetAuthenticatedUser(ctx context.Context) (domain.UserRef, bool) {
	user, ok := ctx.Value(authenticatedUserKey).(domain.UserRef)
	return user, ok
}
