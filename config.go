package adminauth

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

// Config holds every tunable of the admin client. Obtain one with
// DefaultConfig or LoadConfig, adjust it, and hand it to Builder.WithConfig.
type Config struct {
	Lockout   LockoutConfig
	Tokens    TokenConfig
	Transport TransportConfig
	Storage   StorageConfig
	Device    DeviceConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls brute-force protection on Login.
type LockoutConfig struct {
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	// TickInterval is how often Run advances the lockout countdown.
	TickInterval time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls token lifetimes and storage keys. Lifetimes keep the
// units the backend contract uses: days for sessions, minutes for OTP tokens.
type TokenConfig struct {
	SessionTTLDays float64
	OTPTTLMinutes  float64
	SessionKey     string
	OTPKey         string
	SameSite       http.SameSite
}

// SessionTTL returns the session token lifetime.
func (t TokenConfig) SessionTTL() time.Duration {
	return time.Duration(t.SessionTTLDays * float64(24*time.Hour))
}

// OTPTTL returns the OTP token lifetime.
func (t TokenConfig) OTPTTL() time.Duration {
	return time.Duration(t.OTPTTLMinutes * float64(time.Minute))
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// Endpoints are the backend paths, relative to TransportConfig.BaseURL.
type Endpoints struct {
	Login          string
	Logout         string
	ForgotPassword string
	VerifyOTP      string
	ResetPassword  string
	UpdatePassword string
	Register       string
}

// TransportConfig configures the request gateway.
type TransportConfig struct {
	BaseURL    string
	Timeout    time.Duration
	LoginRoute string
	UserAgent  string
	// RequestsPerSecond limits outbound calls; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int
	Endpoints         Endpoints
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where session tokens are persisted.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageRedis  StorageBackend = "redis"
	StorageSQLite StorageBackend = "sqlite"
)

// StorageConfig configures the durable token store. OTP tokens always live in
// process memory.
type StorageConfig struct {
	Backend       StorageBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	SQLitePath    string
}

/*
====================================
AMBIENT CONFIG
====================================
*/

// DeviceConfig controls the device headers sent on login and OTP verification.
type DeviceConfig struct {
	Enabled bool
	Model   string
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the defaults of the original admin panel: five
// attempts, a fifteen minute lockout, seven day sessions and thirty minute OTP
// tokens.
func DefaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxLoginAttempts: 5,
			LockoutDuration:  15 * time.Minute,
			TickInterval:     time.Second,
		},
		Tokens: TokenConfig{
			SessionTTLDays: 7,
			OTPTTLMinutes:  30,
			SessionKey:     "authToken",
			OTPKey:         "access_token",
			SameSite:       http.SameSiteStrictMode,
		},
		Transport: TransportConfig{
			BaseURL:    "http://localhost:8080",
			Timeout:    30 * time.Second,
			LoginRoute: "/auth/login",
			Burst:      1,
			Endpoints: Endpoints{
				Login:          "/api/admin/login",
				Logout:         "/api/admin/logout",
				ForgotPassword: "/api/auth/send-otp/forgot-password",
				VerifyOTP:      "/api/auth/verify-otp",
				ResetPassword:  "/api/auth/reset-password",
				UpdatePassword: "/api/auth/update-password",
				Register:       "/api/auth/register",
			},
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			RedisPrefix: "aat",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Lockout.MaxLoginAttempts <= 0 {
		return errors.New("Lockout MaxLoginAttempts must be > 0")
	}
	if c.Lockout.LockoutDuration <= 0 {
		return errors.New("Lockout LockoutDuration must be > 0")
	}
	if c.Lockout.TickInterval <= 0 {
		return errors.New("Lockout TickInterval must be > 0")
	}

	if c.Tokens.SessionTTL() <= 0 {
		return errors.New("Tokens SessionTTLDays must be > 0")
	}
	if c.Tokens.OTPTTL() <= 0 {
		return errors.New("Tokens OTPTTLMinutes must be > 0")
	}
	if c.Tokens.SessionKey == "" || c.Tokens.OTPKey == "" {
		return errors.New("Tokens SessionKey and OTPKey must be set")
	}
	switch c.Tokens.SameSite {
	case http.SameSiteDefaultMode, http.SameSiteLaxMode, http.SameSiteStrictMode, http.SameSiteNoneMode:
	default:
		return errors.New("Tokens SameSite is invalid")
	}

	u, err := url.Parse(c.Transport.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Transport BaseURL must be an absolute URL")
	}
	if c.Transport.Timeout <= 0 {
		return errors.New("Transport Timeout must be > 0")
	}
	if c.Transport.RequestsPerSecond < 0 {
		return errors.New("Transport RequestsPerSecond must be >= 0")
	}
	if c.Transport.RequestsPerSecond > 0 && c.Transport.Burst <= 0 {
		return errors.New("Transport Burst must be > 0 when rate limiting is enabled")
	}
	ep := c.Transport.Endpoints
	for _, p := range []string{ep.Login, ep.Logout, ep.ForgotPassword, ep.VerifyOTP, ep.ResetPassword, ep.UpdatePassword, ep.Register} {
		if p == "" {
			return errors.New("Transport Endpoints must all be set")
		}
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		// a client passed to Builder.WithRedis satisfies this too
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("Storage SQLitePath is required for the sqlite backend")
		}
	default:
		return errors.New("Storage Backend must be memory, redis or sqlite")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	return nil
}
