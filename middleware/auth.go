package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"trial-funnel/services/auth"
	"trial-funnel/utils"
)

type contextKey string

const (
	OperatorContextKey  contextKey = "operator"
	RequestIDContextKey contextKey = "request_id"
)

// TokenValidator is satisfied by *auth.JWTService.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Operator, error)
}

// AuthMiddleware requires a valid operator bearer token.
func AuthMiddleware(validator TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Info("Missing Authorization header", zap.String("remote", r.RemoteAddr))
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Info("Invalid Authorization header format", zap.String("remote", r.RemoteAddr))
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			operator, err := validator.ValidateToken(parts[1])
			if err != nil {
				log.Info("Token validation failed", zap.String("remote", r.RemoteAddr), zap.Error(err))

				message := "Authentication failed"
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					message = "Token expired"
				case errors.Is(err, auth.ErrInvalidToken):
					message = "Invalid token"
				}

				utils.SendErrorResponse(w, http.StatusUnauthorized, message)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorContextKey, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetOperatorFromContext(ctx context.Context) *auth.Operator {
	operator, ok := ctx.Value(OperatorContextKey).(*auth.Operator)
	if !ok {
		return nil
	}
	return operator
}
