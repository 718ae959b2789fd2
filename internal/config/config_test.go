package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCredentialPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ServerConfig
		want CredentialKind
	}{
		{
			name: "bearer wins over everything",
			cfg:  ServerConfig{BearerToken: "tok", Username: "u", Password: "p", APIKey: "key"},
			want: CredentialBearer,
		},
		{
			name: "basic wins over api key",
			cfg:  ServerConfig{Username: "u", Password: "p", APIKey: "key"},
			want: CredentialBasic,
		},
		{
			name: "api key alone",
			cfg:  ServerConfig{APIKey: "key"},
			want: CredentialAPIKey,
		},
		{
			name: "no credential",
			cfg:  ServerConfig{},
			want: CredentialNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.Credential().Kind; got != tt.want {
				t.Errorf("Credential().Kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     ServerConfig
		wantErr bool
	}{
		{"valid http", ServerConfig{BaseURL: "http://localhost:5000"}, false},
		{"valid https", ServerConfig{BaseURL: "https://ades.example.com/ogc"}, false},
		{"empty url", ServerConfig{}, true},
		{"bad scheme", ServerConfig{BaseURL: "ftp://example.com"}, true},
		{"no host", ServerConfig{BaseURL: "http://"}, true},
		{"negative timeout", ServerConfig{BaseURL: "http://x", Timeout: -time.Second}, true},
		{"username without password", ServerConfig{BaseURL: "http://x", Username: "u"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	content := `{"base_url": "https://ades.example.com", "api_key": "secret", "timeout": 120}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, "", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://ades.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want 120s", cfg.Timeout)
	}
	if cfg.Credential().Kind != CredentialAPIKey {
		t.Errorf("Credential kind = %q, want apikey", cfg.Credential().Kind)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load("", "https://override.example.com", "cli-token")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://override.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	cred := cfg.Credential()
	if cred.Kind != CredentialBearer || cred.Token != "cli-token" {
		t.Errorf("Credential = %+v, want bearer cli-token", cred)
	}
}

func TestNormalizedBaseURL(t *testing.T) {
	t.Parallel()
	cfg := ServerConfig{BaseURL: "http://localhost:5000/"}
	if got := cfg.NormalizedBaseURL(); got != "http://localhost:5000" {
		t.Errorf("NormalizedBaseURL = %q", got)
	}
}
