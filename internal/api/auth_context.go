package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/agencynet/agencynet-server/internal/auth"
	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	// userIDKey is the context key for the authenticated user ID.
	userIDKey ctxKey = "userID"
	// roleKey is the context key for the authenticated user's role.
	roleKey ctxKey = "role"
)

// GetUserID returns the authenticated user ID from context.
// Returns 401 error if user is not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return userID, nil
}

// getRole returns the role claimed by the access token, if any.
func getRole(ctx context.Context) domain.Role {
	role, _ := ctx.Value(roleKey).(domain.Role)
	return role
}

// withClaims stores the verified token claims in context.
func withClaims(ctx context.Context, claims *auth.AccessClaims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	return context.WithValue(ctx, roleKey, claims.Role)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores user ID in context.
// If no token is present or invalid, continues without user in context.
// Handlers use GetUserID to check authentication.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				// Invalid token - continue without user (handler will reject if auth required)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireAgencyOwner validates the caller administers agencyID.
// Returns the user ID if successful, error otherwise.
func (s *Server) RequireAgencyOwner(ctx context.Context, agencyID string) (string, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return "", err
	}

	if _, err := s.services.Agency.AuthorizeOwner(ctx, agencyID, userID); err != nil {
		return "", err
	}

	return userID, nil
}

// RequireDeveloper validates the caller is the developer named in the path.
func RequireDeveloper(ctx context.Context, developerID string) (string, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return "", err
	}

	if userID != developerID {
		return "", domainerrors.Forbidden("developers can only act on their own contracts")
	}
	if role := getRole(ctx); role != "" && role != domain.RoleDeveloper {
		return "", domainerrors.Forbidden("developer role required")
	}

	return userID, nil
}
