package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/session"
	"github.com/velocity-platform/console/internal/version"
)

const testToken = "token-abc"

type result struct {
	code   int
	stdout string
	stderr string
}

type harness struct {
	t           *testing.T
	api         *httptest.Server
	sessionFile string
}

func newHarness(t *testing.T, mux *http.ServeMux) *harness {
	t.Helper()
	api := httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return &harness{
		t:           t,
		api:         api,
		sessionFile: filepath.Join(t.TempDir(), "session.json"),
	}
}

func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var stdout, stderr strings.Builder
	full := append([]string{"--api", h.api.URL, "--session-file", h.sessionFile, "--no-color"}, args...)
	code := Execute(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (h *harness) store() *session.FileStore {
	return session.NewFileStore(h.sessionFile)
}

func (h *harness) signIn(token string) {
	h.t.Helper()
	user := apiclient.User{ID: "u-1", Email: "ada@example.com", Name: "Ada", Role: "admin"}
	require.NoError(h.t, session.SaveCredentials(context.Background(), h.store(), token, user))
}

func (h *harness) token() string {
	h.t.Helper()
	token, err := session.Token(context.Background(), h.store())
	require.NoError(h.t, err)
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func authResponse() map[string]any {
	return map[string]any{
		"access_token": testToken,
		"token_type":   "bearer",
		"expires_in":   3600,
		"user": map[string]any{
			"id":              "u-1",
			"email":           "ada@example.com",
			"name":            "Ada",
			"role":            "admin",
			"organization_id": "org-1",
			"is_active":       true,
		},
	}
}

// stubPassword simulates a terminal on stdin that answers the password prompts in order.
func stubPassword(t *testing.T, passwords ...string) {
	t.Helper()
	orig, origFD := readPassword, terminalFD
	t.Cleanup(func() { readPassword, terminalFD = orig, origFD })

	terminalFD = func(io.Reader) (int, bool) { return 0, true }

	var calls int
	readPassword = func(int) ([]byte, error) {
		if calls >= len(passwords) {
			return nil, errors.New("no more passwords")
		}
		pw := passwords[calls]
		calls++
		return []byte(pw), nil
	}
}

func TestLoginWithFlagsSavesSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "correct horse", body["password"])
		writeJSON(w, http.StatusOK, authResponse())
	})
	mux.HandleFunc("GET /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, authResponse()["user"])
	})
	h := newHarness(t, mux)

	res := h.run("", "login", "--email", " Ada@Example.com ", "--password", "correct horse")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Signed in as Ada <ada@example.com>")
	assert.Equal(t, testToken, h.token())

	res = h.run("", "profile")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ada@example.com")
	assert.Contains(t, res.stdout, "org-1")
}

func TestLoginPromptsForMissingValues(t *testing.T) {
	stubPassword(t, "from-terminal")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "grace@example.com", body["email"])
		assert.Equal(t, "from-terminal", body["password"])
		writeJSON(w, http.StatusOK, authResponse())
	})
	h := newHarness(t, mux)

	res := h.run("grace@example.com\n", "login")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Email: ")
	assert.Contains(t, res.stderr, "Password: ")
	assert.NotContains(t, res.stdout, "Email: ", "prompts stay off stdout")
}

func TestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
	})
	h := newHarness(t, mux)

	res := h.run("", "login", "--email", "ada@example.com", "--password", "wrong")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Invalid email or password.")
	assert.NotContains(t, res.stderr, "velocity login", "login does not tell the user to log in")
	assert.Empty(t, h.token())
}

func TestLoginValidatesEmail(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	res := h.run("", "login", "--email", "not-an-email", "--password", "pw")
	assert.Equal(t, 1, res.code)
	assert.NotEmpty(t, res.stderr)
}

func TestRejectedTokenClearsSession(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboard/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
	})
	h := newHarness(t, mux)
	h.signIn("stale-token")

	res := h.run("", "dashboard")
	assert.Equal(t, 1, res.code)
	assert.Equal(t, 1, strings.Count(res.stderr, "Authentication required. Run `velocity login` to sign in again."))
	assert.Equal(t, int32(1), calls.Load(), "the remaining sections are not requested")
	assert.Empty(t, h.token())

	var user apiclient.User
	assert.ErrorIs(t, session.LoadUser(context.Background(), h.store(), &user), session.ErrNoSession)
}

func TestDashboardSectionFailureIsReported(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboard/overview", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"total_frameworks": 4, "open_findings": 2})
	})
	mux.HandleFunc("GET /api/v1/dashboard/trust-score", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "scoring offline"})
	})
	mux.HandleFunc("GET /api/v1/dashboard/system-health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
	})
	h := newHarness(t, mux)
	h.signIn(testToken)

	res := h.run("", "dashboard")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Overview")
	assert.Contains(t, res.stdout, "total frameworks")
	assert.Contains(t, res.stdout, "System health")
	assert.Contains(t, res.stderr, "Trust score: scoring offline")
	assert.Equal(t, testToken, h.token(), "a server error keeps the session")
}

func TestDashboardSingleSectionRaw(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboard/trust-score", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"score": 87.5, "grade": "B+"})
	})
	h := newHarness(t, mux)
	h.signIn(testToken)

	res := h.run("", "dashboard", "trust-score", "--raw")
	require.Equal(t, 0, res.code, res.stderr)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &doc))
	assert.Equal(t, 87.5, doc["score"])
	assert.Equal(t, "B+", doc["grade"])
}

func TestDashboardRejectsUnknownSection(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	res := h.run("", "dashboard", "billing")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "billing")
}

func TestDashboardAllSectionsFailing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboard/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "maintenance"})
	})
	h := newHarness(t, mux)
	h.signIn(testToken)

	res := h.run("", "dashboard")
	assert.Equal(t, 1, res.code)
	for _, title := range []string{"Overview", "Trust score", "System health"} {
		assert.Contains(t, res.stderr, title+": maintenance")
	}
}

func TestProfileUpdateSendsChangedFieldsOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"timezone": "Europe/London"}, body)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
	})
	h := newHarness(t, mux)
	h.signIn(testToken)

	res := h.run("", "profile", "update", "--timezone", "Europe/London")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Profile updated successfully")
}

func TestProfileUpdateRequiresAField(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	h.signIn(testToken)

	res := h.run("", "profile", "update")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "nothing to update")
}

func TestRegisterPromptsForPasswordTwice(t *testing.T) {
	stubPassword(t, "long-enough-pw", "long-enough-pw")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme", body["company_name"])
		assert.Equal(t, "long-enough-pw", body["password"])
		assert.NotContains(t, body, "tier")
		writeJSON(w, http.StatusCreated, authResponse())
	})
	h := newHarness(t, mux)

	res := h.run("", "register", "--name", "Ada", "--email", "ada@example.com", "--company", "Acme")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Account created")
	assert.Equal(t, testToken, h.token())
}

func TestRegisterPasswordMismatch(t *testing.T) {
	stubPassword(t, "long-enough-pw", "different-pw")
	h := newHarness(t, http.NewServeMux())

	res := h.run("", "register", "--name", "Ada", "--email", "ada@example.com", "--company", "Acme")
	assert.Equal(t, 1, res.code)
	assert.Empty(t, h.token())
}

func TestLogoutClearsSessionWhenAPIFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	h := newHarness(t, mux)
	h.signIn(testToken)

	res := h.run("", "logout")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Signed out")
	assert.Contains(t, res.stderr, "API logout failed")
	assert.Empty(t, h.token())
}

func TestRefreshRequiresToken(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	res := h.run("", "refresh")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "refresh-token")
}

func TestRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rt-1", r.URL.Query().Get("refresh_token"))
		writeJSON(w, http.StatusOK, authResponse())
	})
	h := newHarness(t, mux)
	h.signIn("old-token")

	res := h.run("", "refresh", "--refresh-token", "rt-1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "expires in 1h0m0s")
	assert.Equal(t, testToken, h.token())
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     map[string]any
		wantCode int
		want     string
	}{
		{
			name:     "healthy",
			status:   http.StatusOK,
			body:     map[string]any{"status": "healthy", "supabase_connected": true, "jwt_secret_configured": true},
			wantCode: 0,
			want:     "[healthy]",
		},
		{
			name:     "unhealthy",
			status:   http.StatusOK,
			body:     map[string]any{"status": "unhealthy", "error": "database unreachable"},
			wantCode: 1,
			want:     "database unreachable",
		},
		{
			name:     "unavailable",
			status:   http.StatusBadGateway,
			body:     map[string]any{"detail": "upstream down"},
			wantCode: 1,
			want:     "[unavailable]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/v1/auth/health", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			h := newHarness(t, mux)

			res := h.run("", "health")
			assert.Equal(t, tt.wantCode, res.code, res.stderr)
			assert.Contains(t, res.stdout, tt.want)
		})
	}
}

func TestStatus(t *testing.T) {
	orig := now
	t.Cleanup(func() { now = orig })
	now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	h := newHarness(t, http.NewServeMux())

	res := h.run("", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "[signed out]")
	assert.Contains(t, res.stdout, h.sessionFile)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	h.signIn(token)

	res = h.run("", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "[signed in]")
	assert.Contains(t, res.stdout, "ada@example.com")
	assert.Contains(t, res.stdout, "[expired]")

	h.signIn("opaque-token")
	res = h.run("", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "opaque")
}

func TestVersion(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	res := h.run("", "version", "--short")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, version.Get().Version+"\n", res.stdout)

	res = h.run("", "version", "--json")
	require.Equal(t, 0, res.code, res.stderr)
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &info))
	assert.Equal(t, version.Get(), info)
}

func TestInvalidAPIVersionFlag(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	res := h.run("", "--api-version", "latest", "status")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "API version")
}

func TestEnvironmentConfiguresAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/auth/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
	})
	api := httptest.NewServer(mux)
	t.Cleanup(api.Close)

	t.Setenv("VELOCITY_API_URL", api.URL)
	t.Setenv("VELOCITY_API_VERSION", "v2")
	t.Setenv("VELOCITY_SESSION_FILE", filepath.Join(t.TempDir(), "s.json"))

	var stdout, stderr strings.Builder
	code := Execute(context.Background(), []string{"--no-color", "health"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), api.URL+"/api/v2")
}

func TestLoadtest(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboard/trust-score", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		if calls.Add(1) == 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "busy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"score": 90})
	})
	h := newHarness(t, mux)
	h.signIn(testToken)

	res := h.run("", "loadtest", "trust-score", "-n", "12", "-c", "3")
	assert.Equal(t, 1, res.code)
	assert.Equal(t, int32(12), calls.Load())
	assert.Contains(t, res.stdout, "HTTP 200")
	assert.Contains(t, res.stdout, "HTTP 503")
	assert.Contains(t, res.stderr, "1 of 12 requests failed")
}

func TestLoginReadsPipedPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "grace@example.com", body["email"])
		assert.Equal(t, " piped secret", body["password"], "surrounding spaces are part of the password")
		writeJSON(w, http.StatusOK, authResponse())
	})
	h := newHarness(t, mux)

	res := h.run("grace@example.com\n piped secret\r\n", "login")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Password: ")
	assert.Equal(t, testToken, h.token())
}

func TestLoginKeepsRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		body := authResponse()
		body["refresh_token"] = "rt-login"
		writeJSON(w, http.StatusOK, body)
	})
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rt-login", r.URL.Query().Get("refresh_token"))
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		body := authResponse()
		body["access_token"] = "token-refreshed"
		body["refresh_token"] = "rt-next"
		writeJSON(w, http.StatusOK, body)
	})
	h := newHarness(t, mux)

	res := h.run("", "login", "--email", "ada@example.com", "--password", "pw")
	require.Equal(t, 0, res.code, res.stderr)
	assert.NotContains(t, res.stdout, "rt-login", "printed only on request")

	res = h.run("", "login", "--email", "ada@example.com", "--password", "pw", "--show-refresh-token")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Refresh token: rt-login")

	res = h.run("", "refresh")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "token-refreshed", h.token())
	kept, err := session.RefreshToken(context.Background(), h.store())
	require.NoError(t, err)
	assert.Equal(t, "rt-next", kept)

	res = h.run("", "logout")
	require.Equal(t, 0, res.code, res.stderr)
	assert.NoFileExists(t, h.sessionFile)
}

func TestRegisterRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Registration closed"})
	})
	h := newHarness(t, mux)

	res := h.run("", "register", "--name", "Ada", "--email", "ada@example.com", "--company", "Acme",
		"--password", "long-enough-pw")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Registration was rejected.")
	assert.NotContains(t, res.stderr, "velocity login")
	assert.Empty(t, h.token())
}

func TestCorruptSessionFileRecovers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authResponse())
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "an unreadable session sends no token")
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})

	t.Run("login overwrites", func(t *testing.T) {
		h := newHarness(t, mux)
		require.NoError(t, os.WriteFile(h.sessionFile, []byte("{ not json"), 0o600))

		res := h.run("", "login", "--email", "ada@example.com", "--password", "pw")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Equal(t, testToken, h.token())
	})

	t.Run("logout deletes", func(t *testing.T) {
		h := newHarness(t, mux)
		require.NoError(t, os.WriteFile(h.sessionFile, []byte("{ not json"), 0o600))

		res := h.run("", "logout")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Signed out")
		assert.NoFileExists(t, h.sessionFile)
	})
}

func TestLogoutReportsUnremovableSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})
	h := newHarness(t, mux)
	// a directory in place of the session file cannot be read or removed
	require.NoError(t, os.MkdirAll(filepath.Join(h.sessionFile, "keep"), 0o700))

	res := h.run("", "logout")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Could not remove the local session")
	assert.NotContains(t, res.stdout, "Signed out")
}
