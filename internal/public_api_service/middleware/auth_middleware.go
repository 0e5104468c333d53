package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	IdentityContextKey = ContextKey("identity")
)

var ErrTokenInvalid = errors.New("invalid or expired token")

// Identity is the signed-in user as asserted by the identity provider.
type Identity struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Emails      []string `json:"emails"`
}

// CurrentUser returns the identity attached by AuthMiddleware.
func CurrentUser(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(Identity)
	return id, ok
}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

// TokenValidator turns an HS256 bearer token into an Identity.
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

func (v *TokenValidator) Validate(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrTokenInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrTokenInvalid
	}

	id := Identity{}
	id.ID, _ = claims["sub"].(string)
	if id.ID == "" {
		return Identity{}, ErrTokenInvalid
	}
	id.DisplayName, _ = claims["name"].(string)
	switch emails := claims["emails"].(type) {
	case []interface{}:
		for _, e := range emails {
			if s, ok := e.(string); ok && s != "" {
				id.Emails = append(id.Emails, strings.ToLower(s))
			}
		}
	case string:
		id.Emails = []string{strings.ToLower(emails)}
	}
	if email, ok := claims["email"].(string); ok && email != "" && len(id.Emails) == 0 {
		id.Emails = []string{strings.ToLower(email)}
	}
	return id, nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores the Identity in the context.
func AuthMiddleware(validator *TokenValidator, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			id, err := validator.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
