package auth

import (
	"context"
	"net/http"
	"sync"

	console "github.com/velocity-platform/console"
	"github.com/velocity-platform/console/internal/response"
)

// RedirectNavigator sends the browser to the login page when the API client ends the
// session. Only the first redirect is written.
type RedirectNavigator struct {
	w http.ResponseWriter
	r *http.Request

	mu         sync.Mutex
	redirected bool
}

func NewRedirectNavigator(w http.ResponseWriter, r *http.Request) *RedirectNavigator {
	return &RedirectNavigator{w: w, r: r}
}

func (n *RedirectNavigator) RedirectToLogin(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.redirected {
		return
	}
	n.redirected = true
	response.Redirect(n.w, n.r, console.LoginRoute)
}

// Redirected reports whether the response has already been written.
func (n *RedirectNavigator) Redirected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redirected
}
