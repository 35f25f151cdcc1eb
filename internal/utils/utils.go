package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MinimumPasswordLength is checked before a registration is sent to the backend.
const MinimumPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail trims, NFC-normalizes and lower-cases an email address so the same
// address typed on different keyboards reaches the backend identically.
func NormalizeEmail(input string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(input)))
}

// ValidateEmail does a shape check only; the backend is the authority.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%q is not a valid email address", email)
	}
	return nil
}

// ValidatePassword checks the registration password and its confirmation.
// An empty confirm skips the comparison.
func ValidatePassword(password, confirm string) error {
	if len([]rune(password)) < MinimumPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinimumPasswordLength)
	}
	if confirm != "" && confirm != password {
		return fmt.Errorf("passwords do not match")
	}
	return nil
}

// GetScheme reports the scheme the browser used, honouring reverse proxy headers.
func GetScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}

	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
