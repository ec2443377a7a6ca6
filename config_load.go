package adminauth

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// duration decodes TOML strings such as "15m" or "1s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type fileConfig struct {
	Lockout struct {
		MaxLoginAttempts      int      `toml:"max_login_attempts"`
		LockoutDuration       duration `toml:"lockout_duration"`
		LockoutDurationMillis int64    `toml:"lockout_duration_millis"`
		TickInterval          duration `toml:"tick_interval"`
	} `toml:"lockout"`

	Tokens struct {
		SessionTTLDays float64 `toml:"session_ttl_days"`
		OTPTTLMinutes  float64 `toml:"otp_ttl_minutes"`
		SessionKey     string  `toml:"session_key"`
		OTPKey         string  `toml:"otp_key"`
		SameSite       string  `toml:"same_site"`
	} `toml:"tokens"`

	Transport struct {
		BaseURL           string   `toml:"base_url"`
		Timeout           duration `toml:"timeout"`
		LoginRoute        string   `toml:"login_route"`
		UserAgent         string   `toml:"user_agent"`
		RequestsPerSecond float64  `toml:"requests_per_second"`
		Burst             int      `toml:"burst"`
		Endpoints         struct {
			Login          string `toml:"login"`
			Logout         string `toml:"logout"`
			ForgotPassword string `toml:"forgot_password"`
			VerifyOTP      string `toml:"verify_otp"`
			ResetPassword  string `toml:"reset_password"`
			UpdatePassword string `toml:"update_password"`
			Register       string `toml:"register"`
		} `toml:"endpoints"`
	} `toml:"transport"`

	Storage struct {
		Backend       string `toml:"backend"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       int    `toml:"redis_db"`
		RedisPrefix   string `toml:"redis_prefix"`
		SQLitePath    string `toml:"sqlite_path"`
	} `toml:"storage"`

	Device struct {
		Enabled *bool  `toml:"enabled"`
		Model   string `toml:"model"`
	} `toml:"device"`

	Audit struct {
		Enabled    *bool `toml:"enabled"`
		BufferSize int   `toml:"buffer_size"`
		DropIfFull *bool `toml:"drop_if_full"`
	} `toml:"audit"`

	Metrics struct {
		Enabled                 *bool `toml:"enabled"`
		EnableLatencyHistograms *bool `toml:"latency_histograms"`
	} `toml:"metrics"`
}

// LoadConfig returns DefaultConfig overlaid with the TOML file at path (when
// path is non-empty) and then with ADMINAUTH_* environment variables. Unknown
// keys in the file are rejected. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		var fc fileConfig
		md, err := toml.DecodeFile(path, &fc)
		if err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
		if err := fc.apply(&cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	setInt(&cfg.Lockout.MaxLoginAttempts, fc.Lockout.MaxLoginAttempts)
	setDuration(&cfg.Lockout.LockoutDuration, fc.Lockout.LockoutDuration.Duration)
	if fc.Lockout.LockoutDurationMillis > 0 {
		cfg.Lockout.LockoutDuration = time.Duration(fc.Lockout.LockoutDurationMillis) * time.Millisecond
	}
	setDuration(&cfg.Lockout.TickInterval, fc.Lockout.TickInterval.Duration)

	setFloat(&cfg.Tokens.SessionTTLDays, fc.Tokens.SessionTTLDays)
	setFloat(&cfg.Tokens.OTPTTLMinutes, fc.Tokens.OTPTTLMinutes)
	setString(&cfg.Tokens.SessionKey, fc.Tokens.SessionKey)
	setString(&cfg.Tokens.OTPKey, fc.Tokens.OTPKey)
	if fc.Tokens.SameSite != "" {
		ss, err := parseSameSite(fc.Tokens.SameSite)
		if err != nil {
			return err
		}
		cfg.Tokens.SameSite = ss
	}

	t := &cfg.Transport
	setString(&t.BaseURL, fc.Transport.BaseURL)
	setDuration(&t.Timeout, fc.Transport.Timeout.Duration)
	setString(&t.LoginRoute, fc.Transport.LoginRoute)
	setString(&t.UserAgent, fc.Transport.UserAgent)
	setFloat(&t.RequestsPerSecond, fc.Transport.RequestsPerSecond)
	setInt(&t.Burst, fc.Transport.Burst)
	ep := fc.Transport.Endpoints
	setString(&t.Endpoints.Login, ep.Login)
	setString(&t.Endpoints.Logout, ep.Logout)
	setString(&t.Endpoints.ForgotPassword, ep.ForgotPassword)
	setString(&t.Endpoints.VerifyOTP, ep.VerifyOTP)
	setString(&t.Endpoints.ResetPassword, ep.ResetPassword)
	setString(&t.Endpoints.UpdatePassword, ep.UpdatePassword)
	setString(&t.Endpoints.Register, ep.Register)

	if fc.Storage.Backend != "" {
		cfg.Storage.Backend = StorageBackend(strings.ToLower(fc.Storage.Backend))
	}
	setString(&cfg.Storage.RedisAddr, fc.Storage.RedisAddr)
	setString(&cfg.Storage.RedisPassword, fc.Storage.RedisPassword)
	setInt(&cfg.Storage.RedisDB, fc.Storage.RedisDB)
	setString(&cfg.Storage.RedisPrefix, fc.Storage.RedisPrefix)
	setString(&cfg.Storage.SQLitePath, fc.Storage.SQLitePath)

	setBool(&cfg.Device.Enabled, fc.Device.Enabled)
	setString(&cfg.Device.Model, fc.Device.Model)

	setBool(&cfg.Audit.Enabled, fc.Audit.Enabled)
	setInt(&cfg.Audit.BufferSize, fc.Audit.BufferSize)
	setBool(&cfg.Audit.DropIfFull, fc.Audit.DropIfFull)

	setBool(&cfg.Metrics.Enabled, fc.Metrics.Enabled)
	setBool(&cfg.Metrics.EnableLatencyHistograms, fc.Metrics.EnableLatencyHistograms)
	return nil
}

// ApplyEnvOverrides applies the ADMINAUTH_* environment variables:
//
//   - ADMINAUTH_BASE_URL: transport.base_url
//   - ADMINAUTH_MAX_LOGIN_ATTEMPTS: lockout.max_login_attempts
//   - ADMINAUTH_LOCKOUT_DURATION: lockout.lockout_duration ("15m")
//   - ADMINAUTH_SESSION_TTL_DAYS, ADMINAUTH_OTP_TTL_MINUTES: token lifetimes
//   - ADMINAUTH_STORAGE_BACKEND, ADMINAUTH_REDIS_ADDR, ADMINAUTH_REDIS_PASSWORD,
//     ADMINAUTH_SQLITE_PATH: storage
//   - ADMINAUTH_REQUESTS_PER_SECOND: transport rate limit
//   - ADMINAUTH_DEVICE_ENABLED, ADMINAUTH_AUDIT_ENABLED, ADMINAUTH_METRICS_ENABLED
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("ADMINAUTH_BASE_URL"); v != "" {
		c.Transport.BaseURL = v
	}
	if err := envInt("ADMINAUTH_MAX_LOGIN_ATTEMPTS", &c.Lockout.MaxLoginAttempts); err != nil {
		return err
	}
	if v := os.Getenv("ADMINAUTH_LOCKOUT_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ADMINAUTH_LOCKOUT_DURATION: %w", err)
		}
		c.Lockout.LockoutDuration = d
	}
	if err := envFloat("ADMINAUTH_SESSION_TTL_DAYS", &c.Tokens.SessionTTLDays); err != nil {
		return err
	}
	if err := envFloat("ADMINAUTH_OTP_TTL_MINUTES", &c.Tokens.OTPTTLMinutes); err != nil {
		return err
	}
	if v := os.Getenv("ADMINAUTH_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = StorageBackend(strings.ToLower(v))
	}
	if v := os.Getenv("ADMINAUTH_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("ADMINAUTH_REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("ADMINAUTH_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if err := envFloat("ADMINAUTH_REQUESTS_PER_SECOND", &c.Transport.RequestsPerSecond); err != nil {
		return err
	}
	envBool("ADMINAUTH_DEVICE_ENABLED", &c.Device.Enabled)
	envBool("ADMINAUTH_AUDIT_ENABLED", &c.Audit.Enabled)
	envBool("ADMINAUTH_METRICS_ENABLED", &c.Metrics.Enabled)
	return nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	default:
		return 0, fmt.Errorf("invalid same_site %q", v)
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
