// Package auth carries the browser session for the UI server.
//
// The backend token and user profile live in two HttpOnly cookies named after the
// session storage keys. CookieStore exposes them to the API client as a session.Store
// for the duration of one request, and RedirectNavigator turns the client's forced
// logout into an HTTP redirect.
package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"

	console "github.com/velocity-platform/console"
	"github.com/velocity-platform/console/internal/session"
)

// CookieStore is a request-scoped session.Store backed by cookies.
//
// Reads see writes made earlier in the same request; writes are sent to the browser as
// Set-Cookie headers, so they must happen before the response is written.
type CookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool

	mu      sync.Mutex
	pending map[string]string // values written during this request, "" when removed
}

var _ session.Store = (*CookieStore)(nil)

// NewCookieStore binds a store to one request. secure marks the cookies Secure.
func NewCookieStore(w http.ResponseWriter, r *http.Request, secure bool) *CookieStore {
	return &CookieStore{
		w:       w,
		r:       r,
		secure:  secure,
		pending: make(map[string]string),
	}
}

func (s *CookieStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.pending[key]; ok {
		return v, nil
	}

	c, err := s.r.Cookie(key)
	if err != nil {
		return "", nil
	}
	v, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return "", fmt.Errorf("cookie %s is not valid: %w", key, err)
	}
	return string(v), nil
}

func (s *CookieStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[key] = value
	http.SetCookie(s.w, s.cookie(key, base64.RawURLEncoding.EncodeToString([]byte(value)), 0))
	return nil
}

func (s *CookieStore) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.pending[key] = ""
		http.SetCookie(s.w, s.cookie(key, "", -1))
	}
	return nil
}

// cookie returns a browser-session cookie; the backend token carries its own expiry.
func (s *CookieStore) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// HasToken reports whether the request carries a session token cookie.
func HasToken(r *http.Request) bool {
	c, err := r.Cookie(console.TokenStorageKey)
	return err == nil && c.Value != ""
}
