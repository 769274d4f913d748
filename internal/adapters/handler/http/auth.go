package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

const accessTokenCookie = "access_token"

var errMissingToken = errors.New("missing access token")

// Authenticate verifies an HS256 access token from the Authorization header or
// the access_token cookie and stores the caller's id and role in the context.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, role, err := identityFromRequest(r, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized: "+err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, RoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role differs from role.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if callerRole(r) != role {
				writeError(w, http.StatusForbidden, "Forbidden: "+string(role)+" role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFromRequest(r *http.Request, secret []byte) (string, domain.Role, error) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		return "", "", errMissingToken
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", err
	}

	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return "", "", errors.New("token has no subject")
	}

	role := domain.RoleStudent
	if raw, ok := claims["role"].(string); ok && raw != "" {
		role = domain.Role(raw)
	}
	if !role.Valid() {
		return "", "", errors.New("token has an unknown role")
	}

	return userID, role, nil
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}

func callerRole(r *http.Request) domain.Role {
	role, _ := r.Context().Value(RoleKey).(domain.Role)
	return role
}
