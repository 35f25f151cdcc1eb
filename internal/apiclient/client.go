// Package apiclient centralises outbound calls to the Velocity backend.
//
// Every call goes through one transport that builds {base}/api/{version}/{path}, merges
// headers (JSON defaults, then the session's bearer token, then caller overrides) and
// hands the response to the normaliser. The normaliser turns every outcome into an
// Envelope: nothing is retried and, apart from ErrAuthenticationRequired, no error is
// returned - transport and decode failures become envelopes with status 500.
//
// A 401 from the backend ends the session: the Store is cleared, the Navigator is sent
// to the login route and the call returns ErrAuthenticationRequired.
//
// The named operations in auth.go and dashboard.go only describe endpoints.
package apiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	console "github.com/velocity-platform/console"
	"github.com/velocity-platform/console/internal/session"
)

// Navigator sends the user to the login surface after the backend rejects their session.
type Navigator interface {
	RedirectToLogin(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) RedirectToLogin(ctx context.Context) { f(ctx) }

type nopNavigator struct{}

func (nopNavigator) RedirectToLogin(context.Context) {}

// Config locates the backend. It is fixed for the lifetime of a Client.
type Config struct {
	BaseURL string // scheme://host[:port][/prefix]
	Version string // defaults to console.APIVersion
}

// Client handles communication with the Velocity API.
type Client struct {
	baseURL      string // {BaseURL}/api/{Version}
	httpClient   *http.Client
	store        session.Store
	navigator    Navigator
	logger       *slog.Logger
	newRequestID func() string
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger sets the logger used for request and failure logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestIDGenerator replaces the uuid based X-Request-ID generator.
func WithRequestIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}

// New constructs a Client. A nil store gets an in-memory store and a nil navigator
// does nothing; consumers serving several users derive per-user clients with
// WithSession.
//
// The default HTTP client has no timeout: a call ends when the backend answers or the
// caller's context is cancelled.
func New(cfg Config, store session.Store, nav Navigator, opts ...Option) (*Client, error) {
	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	version := strings.Trim(strings.TrimSpace(cfg.Version), "/")
	if version == "" {
		version = console.APIVersion
	}

	if store == nil {
		store = session.NewMemoryStore()
	}
	if nav == nil {
		nav = nopNavigator{}
	}

	c := &Client{
		baseURL:      base + "/api/" + version,
		httpClient:   &http.Client{},
		store:        store,
		navigator:    nav,
		logger:       slog.Default(),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "apiclient"))
	return c, nil
}

// WithSession returns a copy of the client bound to another session store and navigator.
// The HTTP client and configuration are shared.
func (c *Client) WithSession(store session.Store, nav Navigator) *Client {
	cp := *c
	if store != nil {
		cp.store = store
	}
	if nav != nil {
		cp.navigator = nav
	}
	return &cp
}

// Store returns the session store the client reads its token from.
func (c *Client) Store() session.Store {
	return c.store
}

// BaseURL returns {BaseURL}/api/{Version}.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(base string) (string, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = console.DefaultAPIBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid api base url %q: missing host", base)
	}
	return strings.TrimRight(trimmed, "/"), nil
}
