package middleware

import (
	"context"
	"crypto/rsa"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"areas-bknd/internal/editor"
	"areas-bknd/internal/services"
)

type AuthMiddleware struct {
	publicKey   *rsa.PublicKey
	authService *services.AuthService
	logr        *zap.Logger
}

type contextKey string

const (
	ContextUserIDKey    contextKey = "userID"
	ContextEmailKey     contextKey = "email"
	ContextCompanyIDKey contextKey = "companyID"
	ContextAuthMethod   contextKey = "authMethod"
)

// NewAuthMiddleware creates a reusable JWT auth middleware instance
func NewAuthMiddleware(publicKey *rsa.PublicKey, authService *services.AuthService, logr *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		publicKey:   publicKey,
		authService: authService,
		logr:        logr,
	}
}

// JWTAuth validates the token and attaches the verified identity (user id,
// email, company) to the request context. Handlers read the mutation scope
// from here, never from request bodies.
func (m *AuthMiddleware) JWTAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "invalid token format", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.publicKey, nil
		})
		if err != nil || !token.Valid {
			m.logr.Warn("token parse error", zap.Error(err))
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "invalid token claims", http.StatusUnauthorized)
			return
		}
		if typ, _ := claims["typ"].(string); typ != "access" {
			http.Error(w, "not an access token", http.StatusUnauthorized)
			return
		}

		userID, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		companyID, _ := claims["company_id"].(string)
		authMethod, _ := claims["auth_method"].(string)
		tokenVersionFloat, _ := claims["ver"].(float64)
		tokenVersion := int(tokenVersionFloat)

		valid, err := m.authService.CheckTokenVersion(r.Context(), userID, tokenVersion)
		if err != nil {
			m.logr.Error("failed checking token version", zap.Error(err), zap.String("user_id", userID))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if !valid {
			m.logr.Warn("token version invalid", zap.String("user_id", userID))
			http.Error(w, "token revoked or invalid", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ContextUserIDKey, userID)
		ctx = context.WithValue(ctx, ContextEmailKey, email)
		ctx = context.WithValue(ctx, ContextCompanyIDKey, companyID)
		ctx = context.WithValue(ctx, ContextAuthMethod, authMethod)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext resolves the session identity the editor requires. The
// editor must not operate without a verified email, so any gap here is a
// hard precondition failure.
func IdentityFromContext(ctx context.Context) (editor.Identity, error) {
	userIDStr, _ := ctx.Value(ContextUserIDKey).(string)
	email, _ := ctx.Value(ContextEmailKey).(string)
	companyIDStr, _ := ctx.Value(ContextCompanyIDKey).(string)

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return editor.Identity{}, editor.ErrNoIdentity
	}
	companyID, err := uuid.Parse(companyIDStr)
	if err != nil || email == "" {
		return editor.Identity{}, editor.ErrNoIdentity
	}
	return editor.Identity{UserID: userID, CompanyID: companyID, Email: email}, nil
}
