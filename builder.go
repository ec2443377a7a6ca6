package adminauth

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/MrEthical07/adminauth/gateway"
	"github.com/MrEthical07/adminauth/internal"
	internalaudit "github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/internal/limiters"
	"github.com/MrEthical07/adminauth/vault"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Client. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  vault.CookieStore

	httpClient *http.Client
	navigator  gateway.Navigator
	auditSink  AuditSink
	logger     *log.Logger
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis stores session tokens in Redis through client. The client is not
// closed by Client.Close.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	b.config.Storage.Backend = StorageRedis
	return b
}

// WithCookieStore overrides the durable token store entirely.
func (b *Builder) WithCookieStore(store vault.CookieStore) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithNavigator sets where the client is sent when the backend revokes the
// session.
func (b *Builder) WithNavigator(n gateway.Navigator) *Builder {
	b.navigator = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock replaces time.Now for lockout, token expiry and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the tracker, vault, gateway,
// metrics and audit dispatcher into a Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}

	// -------- TOKEN STORAGE --------
	durable, closers, err := b.durableStore(cfg, now)
	if err != nil {
		return nil, err
	}
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	tokens, err := vault.New(durable, vault.NewMemoryStore(now), vault.Options{
		SessionKey: cfg.Tokens.SessionKey,
		OTPKey:     cfg.Tokens.OTPKey,
		SameSite:   cfg.Tokens.SameSite,
		Now:        now,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	// -------- LOCKOUT --------
	tracker, err := limiters.NewTracker(limiters.LockoutConfig{
		MaxAttempts: cfg.Lockout.MaxLoginAttempts,
		Duration:    cfg.Lockout.LockoutDuration,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	metrics := NewMetrics(cfg.Metrics)

	// -------- GATEWAY --------
	gw, err := gateway.New(gateway.Config{
		BaseURL:           cfg.Transport.BaseURL,
		Timeout:           cfg.Transport.Timeout,
		LoginRoute:        cfg.Transport.LoginRoute,
		RequestsPerSecond: cfg.Transport.RequestsPerSecond,
		Burst:             cfg.Transport.Burst,
		UserAgent:         cfg.Transport.UserAgent,
	}, tokens,
		gateway.WithHTTPClient(b.httpClient),
		gateway.WithNavigator(b.navigator),
		gateway.WithObserver(requestObserver{metrics: metrics}),
		gateway.WithLogger(logger),
	)
	if err != nil {
		closeAll()
		return nil, err
	}

	c := &Client{
		config:  cfg,
		vault:   tokens,
		gateway: gw,
		tracker: tracker,
		metrics: metrics,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink).WithClock(now),
		logger:  logger,
		now:     now,
		closers: closers,
		state:   StateIdle,
	}
	if cfg.Device.Enabled {
		c.device = internal.NewDevice(cfg.Device.Model)
	}
	gw.OnUnauthorized(c.handleUnauthorized)

	b.built = true
	return c, nil
}

func (b *Builder) durableStore(cfg Config, now func() time.Time) (vault.CookieStore, []io.Closer, error) {
	if b.store != nil {
		return b.store, nil, nil
	}

	switch cfg.Storage.Backend {
	case StorageRedis:
		if b.redis != nil {
			return vault.NewRedisStore(b.redis, cfg.Storage.RedisPrefix), nil, nil
		}
		if cfg.Storage.RedisAddr == "" {
			return nil, nil, errors.New("redis backend requires WithRedis or Storage.RedisAddr")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		return vault.NewRedisStore(rdb, cfg.Storage.RedisPrefix), []io.Closer{rdb}, nil
	case StorageSQLite:
		store, err := vault.OpenSQLiteStore(cfg.Storage.SQLitePath, now)
		if err != nil {
			return nil, nil, fmt.Errorf("open token store: %w", err)
		}
		return store, []io.Closer{store}, nil
	default:
		return vault.NewMemoryStore(now), nil, nil
	}
}
