package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	console "github.com/velocity-platform/console"
	"github.com/velocity-platform/console/internal/session"
)

// Register creates an account and, on success, stores the returned session.
func (c *Client) Register(ctx context.Context, req SignupRequest) (Envelope[AuthResponse], error) {
	env, err := Do[AuthResponse](ctx, c, Request{
		Method: http.MethodPost,
		Path:   "auth/register",
		Body:   req,
	})
	if err != nil || !env.OK() {
		return env, err
	}
	return c.storeSession(ctx, env), nil
}

// Login exchanges credentials for a token and, on success, stores the returned session.
//
// Rejected credentials come back as a 401, so a failed login also clears any existing
// session and triggers the login redirect.
func (c *Client) Login(ctx context.Context, email, password string) (Envelope[AuthResponse], error) {
	env, err := Do[AuthResponse](ctx, c, Request{
		Method: http.MethodPost,
		Path:   "auth/login",
		Body:   loginRequest{Email: email, Password: password},
	})
	if err != nil || !env.OK() {
		return env, err
	}
	return c.storeSession(ctx, env), nil
}

// Logout tells the backend the session is over and clears the local session whether or
// not the backend call succeeded.
func (c *Client) Logout(ctx context.Context) (Envelope[map[string]any], error) {
	env, err := Do[map[string]any](ctx, c, Request{
		Method: http.MethodPost,
		Path:   "auth/logout",
	})
	if clearErr := session.Clear(ctx, c.store); clearErr != nil {
		c.logger.Error("could not clear session on logout", slog.String("error", clearErr.Error()))
	}
	return env, err
}

// Profile fetches the signed in user's profile.
func (c *Client) Profile(ctx context.Context) (Envelope[User], error) {
	return Do[User](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "auth/me",
	})
}

// UpdateProfile applies a partial profile update.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (Envelope[User], error) {
	return Do[User](ctx, c, Request{
		Method: http.MethodPut,
		Path:   "auth/me",
		Body:   update,
	})
}

// RefreshToken exchanges a refresh token for a new access token and stores it.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (Envelope[AuthResponse], error) {
	env, err := Do[AuthResponse](ctx, c, Request{
		Method: http.MethodPost,
		Path:   "auth/refresh",
		Query:  url.Values{"refresh_token": []string{refreshToken}},
	})
	if err != nil || !env.OK() {
		return env, err
	}
	return c.storeSession(ctx, env), nil
}

// AuthHealth reports the health of the backend auth service.
func (c *Client) AuthHealth(ctx context.Context) (Envelope[HealthStatus], error) {
	return Do[HealthStatus](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "auth/health",
	})
}

// storeSession persists the token (and user, when the response carries one).
// A response without an access token leaves the store untouched.
func (c *Client) storeSession(ctx context.Context, env Envelope[AuthResponse]) Envelope[AuthResponse] {
	if env.Data == nil || env.Data.AccessToken == "" {
		return env
	}

	var err error
	if env.Data.User.ID != "" {
		err = session.SaveCredentials(ctx, c.store, env.Data.AccessToken, env.Data.User)
	} else if err = session.SetToken(ctx, c.store, env.Data.AccessToken); err == nil {
		// a user saved by an earlier session belongs to another token
		err = c.store.Remove(ctx, console.UserStorageKey)
	}
	if err != nil {
		ce := newInternalError(err, "storing session")
		c.logger.Error("could not store session", slog.String("error", ce.LogMessage))
		return failed[AuthResponse](ce)
	}
	return env
}
