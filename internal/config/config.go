// Package config loads the environment settings for the console binaries.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Netflix/go-env"

	console "github.com/velocity-platform/console"
)

// UI server config
type UI struct {
	Environment    string        `env:"ENVIRONMENT,default=dev"`
	Host           string        `env:"HOST,default=0.0.0.0"`
	Port           int           `env:"PORT,default=3000"`
	LogLevel       string        `env:"LOG_LEVEL,default=debug"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	APIBaseURL     string        `env:"API_BASE_URL,default=http://localhost:8000"`
	APIVersion     string        `env:"API_VERSION,default=v1"`
	LoginRateLimit float64       `env:"LOGIN_RATE_LIMIT,default=1"` // login attempts per second per client
	LoginRateBurst int           `env:"LOGIN_RATE_BURST,default=5"`
}

// CLI config. Command line flags override these values.
type CLI struct {
	APIBaseURL  string `env:"VELOCITY_API_URL,default=http://localhost:8000"`
	APIVersion  string `env:"VELOCITY_API_VERSION,default=v1"`
	SessionFile string `env:"VELOCITY_SESSION_FILE"` // defaults to the user config dir
	LogLevel    string `env:"VELOCITY_LOG_LEVEL,default=warn"`
}

var validVersion = regexp.MustCompile(`^v[0-9]+$`)

// NewUI loads the UI server config from the environment.
func NewUI() (*UI, error) {
	var cfg UI

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// NewCLI loads the CLI config from the environment.
func NewCLI() (*CLI, error) {
	var cfg CLI

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	return &cfg, nil
}

func (cfg *UI) Validate() error {
	if !console.ValidEnvs[cfg.Environment] {
		return fmt.Errorf("invalid environment '%s'. Valid environments: dev, test, staging, prod", cfg.Environment)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}

	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %v", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %v", cfg.IdleTimeout)
	}

	if cfg.LoginRateLimit <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be positive, got %v", cfg.LoginRateLimit)
	}
	if cfg.LoginRateBurst < 1 {
		return fmt.Errorf("LOGIN_RATE_BURST must be at least 1, got %d", cfg.LoginRateBurst)
	}

	if err := validateAPI(cfg.APIBaseURL, cfg.APIVersion); err != nil {
		return err
	}

	if cfg.Environment == "prod" && strings.HasPrefix(cfg.APIBaseURL, "http://") {
		return fmt.Errorf("API_BASE_URL must use https in production: %s", cfg.APIBaseURL)
	}
	return nil
}

func (cfg *CLI) Validate() error {
	return validateAPI(cfg.APIBaseURL, cfg.APIVersion)
}

func validateAPI(baseURL, version string) error {
	if strings.TrimSpace(baseURL) == "" {
		return fmt.Errorf("API base url cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("API base url is not a valid URL: %s", baseURL)
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API base url must use http or https: %s", baseURL)
	}

	if !validVersion.MatchString(version) {
		return fmt.Errorf("API version must look like v1, got %q", version)
	}
	return nil
}
