package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"argus/util"
)

// contextKey is a private type so other packages cannot forge auth
// context values.
type contextKey string

const (
	contextKeyUsername contextKey = "username"
	contextKeyRoles    contextKey = "roles"
)

// Claims are the JWT claims accepted by the API.
type Claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// jwtAuthMiddleware authenticates bearer tokens. When auth is disabled
// every request passes with an anonymous admin identity.
func (a *API) jwtAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.config.Auth.Enabled {
			ctx := context.WithValue(r.Context(), contextKeyUsername, "anonymous")
			ctx = context.WithValue(ctx, contextKeyRoles, []string{a.config.Auth.AdminRole})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		claims, err := a.validateJWT(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			a.logger.Warnw("Rejected invalid token", "error", util.SanitizeError(err))
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUsername, claims.Username)
		ctx = context.WithValue(ctx, contextKeyRoles, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects authenticated callers without the admin role.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roles, _ := r.Context().Value(contextKeyRoles).([]string)
		for _, role := range roles {
			if role == a.config.Auth.AdminRole {
				next.ServeHTTP(w, r)
				return
			}
		}

		username, _ := r.Context().Value(contextKeyUsername).(string)
		a.logger.Warnw("Denied correlation run to non-admin", "username", username)
		writeError(w, http.StatusForbidden, "admin role required")
	})
}

func (a *API) validateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.config.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("token has expired")
	}
	return claims, nil
}

// GenerateToken signs a token for the given identity. Used by the CLI and
// by integration tests.
func GenerateToken(username string, roles []string, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "argus",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
