package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/policyops/acctd/internal/model"
	"github.com/policyops/acctd/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"

	sessionCookie = "session"
)

// Principal represents the authenticated identity making the request.
type Principal struct {
	UserID int64
	Role   string
}

// Authenticate returns an HTTP middleware that validates the session cookie.
// On success a Principal is attached to the request context; on failure a
// 401 JSON error response is returned. Expired sessions get the same 401 so
// the client knows to try /refresh_token.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookie)
			if err != nil || cookie.Value == "" {
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			userID, role, err := authSvc.DecodeAccessToken(cookie.Value)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			principal := &Principal{UserID: userID, Role: role}
			reportPrincipal(r.Context(), principal)
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns an HTTP middleware that enforces role membership. It
// must be used after Authenticate in the middleware chain.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || !allowed[principal.Role] {
				writeAuthError(w, http.StatusForbidden, "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
