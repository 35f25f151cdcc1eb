package apiclient

import "time"

// SignupRequest is the payload for registering a new account and organization.
type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
	Tier        string `json:"tier,omitempty"` // backend default "starter"
	Role        string `json:"role,omitempty"` // backend default "admin"
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the profile record the backend returns and the session stores.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	OrganizationID   string     `json:"organization_id"`
	OrganizationName string     `json:"organization_name,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// ProfileUpdate holds the fields to change. Nil fields are left untouched.
type ProfileUpdate struct {
	Name        *string        `json:"name,omitempty"`
	Email       *string        `json:"email,omitempty"`
	Timezone    *string        `json:"timezone,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Timezone == nil && len(p.Preferences) == 0
}

// HealthStatus is the auth service health report.
type HealthStatus struct {
	Status              string `json:"status"`
	SupabaseConnected   bool   `json:"supabase_connected"`
	JWTSecretConfigured bool   `json:"jwt_secret_configured"`
	Error               string `json:"error,omitempty"`
}

// Healthy reports whether the backend considers itself healthy.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}
