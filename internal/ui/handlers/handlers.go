// Package handlers implements the UI server's pages and session endpoints.
//
// Every handler that talks to the backend derives a request-scoped API client whose
// session store is the request's cookies. When the backend rejects the token, the
// client clears the cookies and redirects through auth.RedirectNavigator; the handler
// then returns without writing anything else.
package handlers

import (
	"context"
	"html"
	"log/slog"
	"net/http"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/apperrors"
	"github.com/velocity-platform/console/internal/logger"
	"github.com/velocity-platform/console/internal/response"
	"github.com/velocity-platform/console/internal/session"
	"github.com/velocity-platform/console/internal/ui/auth"
	"github.com/velocity-platform/console/internal/utils"
)

type HandlerService struct {
	APIClient   *apiclient.Client
	Environment string
}

// stayOnPage is used by the login form: a rejected login is reported on the page
// instead of redirecting to it.
var stayOnPage = apiclient.NavigatorFunc(func(context.Context) {})

func (h *HandlerService) secureCookies(r *http.Request) bool {
	return h.Environment == "prod" || utils.GetScheme(r) == "https"
}

// sessionClient returns a client bound to the request's cookies that redirects to the
// login page on a 401.
func (h *HandlerService) sessionClient(w http.ResponseWriter, r *http.Request) (*apiclient.Client, *auth.CookieStore) {
	store := auth.NewCookieStore(w, r, h.secureCookies(r))
	return h.APIClient.WithSession(store, auth.NewRedirectNavigator(w, r)), store
}

// formClient is sessionClient for form posts that report failures in place.
func (h *HandlerService) formClient(w http.ResponseWriter, r *http.Request) (*apiclient.Client, *auth.CookieStore) {
	store := auth.NewCookieStore(w, r, h.secureCookies(r))
	return h.APIClient.WithSession(store, stayOnPage), store
}

// keepRefreshToken stores the refresh token from an auth response in its own HttpOnly
// cookie so POST /session/refresh can use it. Failing to keep it does not fail sign in.
func (h *HandlerService) keepRefreshToken(r *http.Request, store session.Store, resp *apiclient.AuthResponse) {
	if resp == nil || resp.RefreshToken == "" {
		return
	}
	if err := session.SaveRefreshToken(r.Context(), store, resp.RefreshToken); err != nil {
		logger.ContextMiddlewareLogger(r.Context()).Warn("could not keep refresh token", slog.String("error", err.Error()))
	}
}

// RenderError reports a failure. htmx requests get a fragment for the form's error slot,
// other requests a JSON error body.
func (h *HandlerService) RenderError(w http.ResponseWriter, r *http.Request, status int, code apperrors.ErrorCode, msg string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		// htmx only swaps 2xx responses
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<p class="error">` + html.EscapeString(msg) + `</p>`))
		return
	}
	response.RespondWithError(w, r, status, code, msg)
}

// renderAPIError reports a failed envelope. Backend outages become 502s.
func (h *HandlerService) renderAPIError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	code := apperrors.FromStatus(status)
	if status >= 500 || status < 400 {
		status = http.StatusBadGateway
	}
	h.RenderError(w, r, status, code, msg)
}
