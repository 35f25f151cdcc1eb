package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	console "github.com/velocity-platform/console"
	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/apperrors"
	"github.com/velocity-platform/console/internal/logger"
	"github.com/velocity-platform/console/internal/response"
	"github.com/velocity-platform/console/internal/session"
	"github.com/velocity-platform/console/internal/ui/auth"
	"github.com/velocity-platform/console/internal/utils"
)

// HandleHome redirects to the dashboard if a session exists, login if not
func (h *HandlerService) HandleHome(w http.ResponseWriter, r *http.Request) {
	if auth.HasToken(r) {
		http.Redirect(w, r, console.DashboardRoute, http.StatusSeeOther)
		return
	}
	response.Redirect(w, r, console.LoginRoute)
}

// HandleLoginPost authenticates the user and stores the session cookies
func (h *HandlerService) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	reqLogger := logger.ContextMiddlewareLogger(r.Context())

	if err := r.ParseForm(); err != nil {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "Could not read the form.")
		return
	}

	email := utils.NormalizeEmail(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	if err := utils.ValidateEmail(email); err != nil || password == "" {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "Enter your email and password.")
		return
	}

	client, store := h.formClient(w, r)
	env, err := client.Login(r.Context(), email, password)
	if err != nil {
		reqLogger.Info("login rejected", slog.String("email", email))
		h.RenderError(w, r, http.StatusUnauthorized, apperrors.ErrCodeAuthenticationFailure, "Invalid email or password.")
		return
	}
	if !env.OK() {
		h.renderAPIError(w, r, env.Status, env.Error)
		return
	}

	h.keepRefreshToken(r, store, env.Data)
	if env.Data != nil {
		_ = logger.ContextWithLogAttrs(r.Context(), slog.String("user_id", env.Data.User.ID))
	}
	response.Redirect(w, r, console.DashboardRoute)
}

// HandleRegisterPost creates an account and signs the new user in
func (h *HandlerService) HandleRegisterPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "Could not read the form.")
		return
	}

	req := apiclient.SignupRequest{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Email:       utils.NormalizeEmail(r.PostFormValue("email")),
		Password:    r.PostFormValue("password"),
		CompanyName: strings.TrimSpace(r.PostFormValue("company_name")),
	}

	if req.Name == "" || req.CompanyName == "" {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "Name and company are required.")
		return
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "Enter a valid email address.")
		return
	}
	if err := utils.ValidatePassword(req.Password, r.PostFormValue("confirm_password")); err != nil {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, capitalize(err.Error())+".")
		return
	}

	client, store := h.formClient(w, r)
	env, err := client.Register(r.Context(), req)
	if err != nil {
		h.RenderError(w, r, http.StatusUnauthorized, apperrors.ErrCodeAuthenticationFailure, err.Error())
		return
	}
	if !env.OK() {
		h.renderAPIError(w, r, env.Status, env.Error)
		return
	}

	h.keepRefreshToken(r, store, env.Data)
	if env.Data != nil {
		_ = logger.ContextWithLogAttrs(r.Context(), slog.String("user_id", env.Data.User.ID))
	}
	response.Redirect(w, r, console.DashboardRoute)
}

// HandleLogout ends the session with the backend and clears the cookies.
// The user lands on the login page whatever the backend answered.
func (h *HandlerService) HandleLogout(w http.ResponseWriter, r *http.Request) {
	client, _ := h.formClient(w, r)
	env, err := client.Logout(r.Context())
	if err == nil && !env.OK() {
		logger.ContextMiddlewareLogger(r.Context()).Warn("backend logout failed",
			slog.Int("status", env.Status),
			slog.String("error", env.Error),
		)
	}
	response.Redirect(w, r, console.LoginRoute)
}

// HandleRefreshSession exchanges a refresh token for a new access token cookie.
// The refresh token comes from the form or, when absent, from the cookie kept at sign in.
// Neither token is returned to the page.
func (h *HandlerService) HandleRefreshSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "Could not read the form.")
		return
	}

	client, store := h.sessionClient(w, r)
	refreshToken := r.PostFormValue("refresh_token")
	if refreshToken == "" {
		refreshToken, _ = session.RefreshToken(r.Context(), store)
	}
	if refreshToken == "" {
		h.RenderError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "refresh_token is required")
		return
	}

	env, err := client.RefreshToken(r.Context(), refreshToken)
	if err != nil {
		return // redirected to login
	}
	if !env.OK() {
		h.renderAPIError(w, r, env.Status, env.Error)
		return
	}

	h.keepRefreshToken(r, store, env.Data)
	body := map[string]any{"status": "refreshed"}
	if env.Data != nil {
		body["token_type"] = env.Data.TokenType
		body["expires_in"] = env.Data.ExpiresIn
	}
	response.RespondWithJSON(w, http.StatusOK, body)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
