package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dom/doctree/internal/api/response"
	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/service"
)

// SessionCookie carries the signed session credential.
const SessionCookie = "session"

type contextKey string

const (
	PrincipalKey contextKey = "principal"
)

// Auth runs the guard chain for every request and only lets through callers
// holding all of roles. The principal is stored on the request context.
func Auth(authService *service.AuthService, roles ...domain.Role) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "middleware.Auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := authService.Authorize(r.Context(), Credential(r), roles...)

			switch result.Outcome {
			case domain.Authorized:
				ctx := context.WithValue(r.Context(), PrincipalKey, result.Principal)
				next.ServeHTTP(w, r.WithContext(ctx))
			case domain.InsufficientRole:
				logger.Info("insufficient role", "user_id", result.Principal.UserID, "required", roles, "path", r.URL.Path)
				response.Message(w, http.StatusForbidden, domain.KindForbidden, "insufficient role")
			default:
				response.Message(w, http.StatusUnauthorized, domain.KindUnauthorized, "authentication required")
			}
		})
	}
}

// Credential extracts the session credential from the Authorization header,
// the session cookie or, for websocket handshakes, the token query parameter.
func Credential(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

func GetPrincipal(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(domain.Principal)
	return principal, ok
}
