package console

/*
config.go holds the values shared by the API client, the UI server and the CLI:
- the fixed storage keys used to persist the session credential
- the login route users are sent to when the backend rejects their token
- defaults for the backend location
*/

// common constants
const (
	// DefaultAPIBaseURL is used when no backend location is configured.
	DefaultAPIBaseURL = "http://localhost:8000"

	// APIVersion is the version segment in {base}/api/{version}/{endpoint}.
	APIVersion = "v1"

	// TokenStorageKey and UserStorageKey are the only two pieces of durable client state.
	TokenStorageKey = "velocity_token"
	UserStorageKey  = "velocity_user"

	// RefreshTokenStorageKey holds the refresh token when a front end chooses to keep
	// it. Whether the user is signed in is still decided by TokenStorageKey alone.
	RefreshTokenStorageKey = "velocity_refresh_token"

	LoginRoute     = "/login"
	DashboardRoute = "/dashboard"

	// DefaultAPIRequestSize limits form posts accepted by the UI server.
	DefaultAPIRequestSize = 64 * 1024

	// MaxAPIResponseSize caps how much of a backend response body the client reads.
	MaxAPIResponseSize = 1 << 20
)

// ValidEnvs lists the deployment environments accepted by the config loaders.
var ValidEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"staging": true,
	"prod":    true,
}
