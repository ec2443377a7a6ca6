package adminauth

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adminauth.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Lockout.MaxLoginAttempts != 5 || cfg.Lockout.LockoutDuration != 15*time.Minute {
		t.Fatalf("unexpected lockout defaults: %+v", cfg.Lockout)
	}
	if cfg.Tokens.SessionTTL() != 7*24*time.Hour || cfg.Tokens.OTPTTL() != 30*time.Minute {
		t.Fatalf("unexpected token lifetimes: %s %s", cfg.Tokens.SessionTTL(), cfg.Tokens.OTPTTL())
	}
	if cfg.Transport.Endpoints.Login != "/api/admin/login" {
		t.Fatalf("unexpected login endpoint %q", cfg.Transport.Endpoints.Login)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"attempts":   func(c *Config) { c.Lockout.MaxLoginAttempts = 0 },
		"duration":   func(c *Config) { c.Lockout.LockoutDuration = 0 },
		"tick":       func(c *Config) { c.Lockout.TickInterval = -time.Second },
		"session":    func(c *Config) { c.Tokens.SessionTTLDays = 0 },
		"otp":        func(c *Config) { c.Tokens.OTPTTLMinutes = -1 },
		"keys":       func(c *Config) { c.Tokens.OTPKey = "" },
		"base url":   func(c *Config) { c.Transport.BaseURL = "localhost" },
		"timeout":    func(c *Config) { c.Transport.Timeout = 0 },
		"burst":      func(c *Config) { c.Transport.RequestsPerSecond = 2; c.Transport.Burst = 0 },
		"endpoint":   func(c *Config) { c.Transport.Endpoints.VerifyOTP = "" },
		"backend":    func(c *Config) { c.Storage.Backend = "etcd" },
		"sqlite":     func(c *Config) { c.Storage.Backend = StorageSQLite; c.Storage.SQLitePath = "" },
		"audit size": func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[lockout]
max_login_attempts = 3
lockout_duration_millis = 60000
tick_interval = "500ms"

[tokens]
session_ttl_days = 1.5
otp_ttl_minutes = 10
same_site = "lax"

[transport]
base_url = "https://admin.example.com"
timeout = "5s"
requests_per_second = 4
burst = 2

[transport.endpoints]
login = "/v2/login"

[storage]
backend = "sqlite"
sqlite_path = "/tmp/adminauth/tokens.db"

[audit]
enabled = true
buffer_size = 16

[metrics]
enabled = true
latency_histograms = true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Lockout.MaxLoginAttempts != 3 || cfg.Lockout.LockoutDuration != time.Minute || cfg.Lockout.TickInterval != 500*time.Millisecond {
		t.Fatalf("unexpected lockout: %+v", cfg.Lockout)
	}
	if cfg.Tokens.SessionTTL() != 36*time.Hour || cfg.Tokens.OTPTTL() != 10*time.Minute || cfg.Tokens.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected tokens: %+v", cfg.Tokens)
	}
	if cfg.Transport.BaseURL != "https://admin.example.com" || cfg.Transport.Timeout != 5*time.Second {
		t.Fatalf("unexpected transport: %+v", cfg.Transport)
	}
	if cfg.Transport.Endpoints.Login != "/v2/login" || cfg.Transport.Endpoints.Logout != "/api/admin/logout" {
		t.Fatalf("endpoints not merged with defaults: %+v", cfg.Transport.Endpoints)
	}
	if cfg.Storage.Backend != StorageSQLite || !cfg.Audit.Enabled || cfg.Audit.BufferSize != 16 {
		t.Fatalf("unexpected storage/audit: %+v %+v", cfg.Storage, cfg.Audit)
	}
	if !cfg.Metrics.Enabled || !cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("metrics not enabled: %+v", cfg.Metrics)
	}
	// Unset booleans keep their defaults.
	if cfg.Audit.DropIfFull != DefaultConfig().Audit.DropIfFull {
		t.Fatalf("drop_if_full changed without being set")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[lockout]
max_login_attempts = 3
max_attempts = 4
`)
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "lockout.max_attempts") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	for name, body := range map[string]string{
		"duration":  "[lockout]\nlockout_duration = \"forever\"\n",
		"same site": "[tokens]\nsame_site = \"sideways\"\n",
		"validate":  "[lockout]\nmax_login_attempts = -1\n",
	} {
		if _, err := LoadConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "[lockout]\nmax_login_attempts = 3\n")
	t.Setenv("ADMINAUTH_MAX_LOGIN_ATTEMPTS", "7")
	t.Setenv("ADMINAUTH_LOCKOUT_DURATION", "2m")
	t.Setenv("ADMINAUTH_BASE_URL", "https://env.example.com")
	t.Setenv("ADMINAUTH_OTP_TTL_MINUTES", "5")
	t.Setenv("ADMINAUTH_METRICS_ENABLED", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Lockout.MaxLoginAttempts != 7 || cfg.Lockout.LockoutDuration != 2*time.Minute {
		t.Fatalf("env did not override lockout: %+v", cfg.Lockout)
	}
	if cfg.Transport.BaseURL != "https://env.example.com" || cfg.Tokens.OTPTTL() != 5*time.Minute || !cfg.Metrics.Enabled {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("ADMINAUTH_MAX_LOGIN_ATTEMPTS", "many")
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for a malformed env value")
	}
}
