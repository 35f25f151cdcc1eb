package auth

import (
	"log/slog"
	"net/http"

	console "github.com/velocity-platform/console"
	"github.com/velocity-platform/console/internal/logger"
	"github.com/velocity-platform/console/internal/response"
	"github.com/velocity-platform/console/internal/session"
)

// RequireAuth lets the request through when a session token cookie is present and
// redirects to the login page otherwise.
//
// Token validity is decided by the backend: an expired or revoked token is caught by
// the API client's 401 handling on the first call the handler makes.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextMiddlewareLogger(r.Context())

		if !HasToken(r) {
			reqLogger.Debug("no session - redirecting to login",
				slog.String("component", "ui.RequireAuth"),
			)
			response.Redirect(w, r, console.LoginRoute)
			return
		}

		// the user cookie is informational; a missing or stale one does not block the request
		var user struct {
			ID string `json:"id"`
		}
		if err := session.LoadUser(r.Context(), NewCookieStore(w, r, false), &user); err == nil && user.ID != "" {
			_ = logger.ContextWithLogAttrs(r.Context(), slog.String("user_id", user.ID))
		}

		next.ServeHTTP(w, r)
	})
}
