package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"auth-sync/internal/domain"
)

// minSnapshotSecretLength mirrors the signer's HMAC key floor.
const minSnapshotSecretLength = 32

// Config holds the application configuration
type Config struct {
	KratosURL          string        // Kratos public (Frontend API) URL
	KratosTimeout      time.Duration // Per-request timeout for Kratos calls
	KratosSessionToken string        // Optional session token to resume at start-up
	Port               string        // Service port
	AuthSharedSecret   string        // Shared secret guarding /auth routes; empty disables
	BootstrapTimeout   time.Duration // Upper bound on the start-up session lookup; 0 = none
	EventsHeartbeat    time.Duration // Keep-alive interval on /session/events
	HSTSEnabled        bool          // Send Strict-Transport-Security

	SnapshotTokenSecret   string        // HMAC secret for signed snapshots; empty disables
	SnapshotTokenIssuer   string        // JWT issuer claim
	SnapshotTokenAudience string        // JWT audience claim
	SnapshotTokenTTL      time.Duration // JWT token TTL
}

// Load reads configuration from environment variables with sensible defaults.
// Every string key may instead be read from the file named by <KEY>_FILE.
func Load() (*Config, error) {
	config := &Config{
		KratosURL:             kratosURL(),
		KratosSessionToken:    getEnv("KRATOS_SESSION_TOKEN", ""),
		Port:                  getEnv("PORT", "8888"),
		AuthSharedSecret:      getEnv("AUTH_SHARED_SECRET", ""),
		SnapshotTokenSecret:   getEnv("SNAPSHOT_TOKEN_SECRET", ""),
		SnapshotTokenIssuer:   getEnv("SNAPSHOT_TOKEN_ISSUER", "auth-sync"),
		SnapshotTokenAudience: getEnv("SNAPSHOT_TOKEN_AUDIENCE", ""),
	}

	var err error
	if config.KratosTimeout, err = getDuration("KRATOS_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if config.BootstrapTimeout, err = getDuration("BOOTSTRAP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if config.EventsHeartbeat, err = getDuration("EVENTS_HEARTBEAT", 15*time.Second); err != nil {
		return nil, err
	}
	if config.SnapshotTokenTTL, err = getDuration("SNAPSHOT_TOKEN_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if config.HSTSEnabled, err = getBool("HSTS_ENABLED", false); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.KratosURL == "" {
		return fmt.Errorf("KRATOS_URL cannot be empty")
	}
	u, err := url.Parse(c.KratosURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("KRATOS_URL must be an absolute http(s) URL, got %q", c.KratosURL)
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("PORT must be a TCP port number, got %q", c.Port)
	}

	if c.KratosTimeout <= 0 {
		return fmt.Errorf("KRATOS_TIMEOUT must be positive")
	}
	if c.BootstrapTimeout < 0 {
		return fmt.Errorf("BOOTSTRAP_TIMEOUT cannot be negative")
	}
	if c.EventsHeartbeat <= 0 {
		return fmt.Errorf("EVENTS_HEARTBEAT must be positive")
	}

	if c.SnapshotTokenSecret != "" {
		if len(c.SnapshotTokenSecret) < minSnapshotSecretLength {
			return fmt.Errorf("SNAPSHOT_TOKEN_SECRET: %w (need at least %d bytes)",
				domain.ErrSnapshotSecretWeak, minSnapshotSecretLength)
		}
		if c.SnapshotTokenTTL <= 0 {
			return fmt.Errorf("SNAPSHOT_TOKEN_TTL must be positive")
		}
	}

	return nil
}

// SnapshotsEnabled reports whether /session responses carry a signed snapshot.
func (c *Config) SnapshotsEnabled() bool {
	return c.SnapshotTokenSecret != ""
}

// kratosURL prefers KRATOS_URL, then derives the Ory Network URL from
// KRATOS_PROJECT, then falls back to the in-cluster default.
func kratosURL() string {
	if v := getEnv("KRATOS_URL", ""); v != "" {
		return strings.TrimRight(v, "/")
	}
	if project := getEnv("KRATOS_PROJECT", ""); project != "" {
		return fmt.Sprintf("https://%s.projects.oryapis.com", project)
	}
	return "http://kratos:4433"
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return b, nil
}
