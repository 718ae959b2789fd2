// Package config provides server and tool configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// CredentialKind identifies the authentication scheme in use.
type CredentialKind string

const (
	CredentialNone   CredentialKind = "none"
	CredentialBearer CredentialKind = "bearer"
	CredentialBasic  CredentialKind = "basic"
	CredentialAPIKey CredentialKind = "apikey"
)

// ServerConfig holds the OGC API Processes server configuration.
//
// When more than one credential is present, a fixed precedence applies:
// bearer token, then basic auth, then API key. Credential() implements
// that order; callers must not inspect the fields directly for auth.
type ServerConfig struct {
	BaseURL     string        `json:"base_url"`
	BearerToken string        `json:"bearer_token,omitempty"`
	Username    string        `json:"username,omitempty"`
	Password    string        `json:"password,omitempty"`
	APIKey      string        `json:"api_key,omitempty"`
	Timeout     time.Duration `json:"-"`

	// TimeoutSeconds is the on-disk representation of Timeout.
	TimeoutSeconds int `json:"timeout,omitempty"`
}

// Credential is the single active credential selected by precedence.
type Credential struct {
	Kind     CredentialKind
	Token    string // bearer or API key value
	Username string
	Password string
}

// DefaultTimeout bounds individual remote calls when no timeout is configured.
const DefaultTimeout = 30 * time.Minute

// Load builds a ServerConfig from an optional JSON file, the environment,
// and explicit overrides, in increasing precedence.
func Load(configFile, serverURL, token string) (*ServerConfig, error) {
	cfg := &ServerConfig{
		BaseURL: GetEnv("OGC_SERVER_URL", "http://localhost:5000"),
		Timeout: GetDurationEnv("OGC_TIMEOUT", DefaultTimeout),
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
		if cfg.TimeoutSeconds > 0 {
			cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
	}

	if v := os.Getenv("OGC_BEARER_TOKEN"); v != "" {
		cfg.BearerToken = v
	}
	if v := os.Getenv("OGC_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("OGC_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("OGC_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := GetSecretFile(os.Getenv("OGC_API_KEY_FILE")); v != "" {
		cfg.APIKey = v
	}

	if serverURL != "" {
		cfg.BaseURL = serverURL
	}
	if token != "" {
		cfg.BearerToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects malformed configuration. A bad config is a caller
// contract violation and fails hard at construction time.
func (c *ServerConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("server base URL is required")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid server base URL %q: %w", c.BaseURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("server base URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("server base URL %q must have a host", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("basic auth requires both username and password")
	}
	return nil
}

// Credential selects the active credential. Precedence: bearer token,
// then basic auth, then API key.
func (c *ServerConfig) Credential() Credential {
	switch {
	case c.BearerToken != "":
		return Credential{Kind: CredentialBearer, Token: c.BearerToken}
	case c.Username != "" && c.Password != "":
		return Credential{Kind: CredentialBasic, Username: c.Username, Password: c.Password}
	case c.APIKey != "":
		return Credential{Kind: CredentialAPIKey, Token: c.APIKey}
	default:
		return Credential{Kind: CredentialNone}
	}
}

// NormalizedBaseURL returns the base URL without a trailing slash.
func (c *ServerConfig) NormalizedBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/")
}
