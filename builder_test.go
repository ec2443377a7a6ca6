package adminauth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth/vault"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lockout.MaxLoginAttempts = 0
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New()
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()
	if _, err := b.Build(); err == nil {
		t.Fatalf("second Build must fail")
	}
}

func TestBuildRedisBackendWithoutAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = StorageRedis
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatalf("expected error without a redis client or address")
	}
}

func TestBuildWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, nil)
	cfg := env.client.Config()
	cfg.Storage.RedisPrefix = "test"

	client, err := New().WithConfig(cfg).WithRedis(rdb).WithClock(env.clock.Now).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if res := client.Login(ctx, testEmail, testPassword); !res.Success {
		t.Fatalf("login: %s", res.Error)
	}
	if !mr.Exists("test:" + cfg.Tokens.SessionKey) {
		t.Fatalf("session token not written to redis; keys: %v", mr.Keys())
	}
	// The OTP slot never touches the durable store.
	if mr.Exists("test:" + cfg.Tokens.OTPKey) {
		t.Fatalf("otp slot written to redis")
	}

	client.Logout(ctx)
	if mr.Exists("test:" + cfg.Tokens.SessionKey) {
		t.Fatalf("session token survived logout in redis")
	}
}

func TestBuildWithRedisAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Storage.Backend = StorageRedis
	cfg.Storage.RedisAddr = mr.Addr()

	client, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBuildWithSQLite(t *testing.T) {
	env := newTestEnv(t, nil)
	cfg := env.client.Config()
	cfg.Storage.Backend = StorageSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "state", "tokens.db")
	ctx := context.Background()

	first, err := New().WithConfig(cfg).WithClock(env.clock.Now).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res := first.Login(ctx, testEmail, testPassword); !res.Success {
		t.Fatalf("login: %s", res.Error)
	}
	want, _, _ := first.SessionToken(ctx)
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := New().WithConfig(cfg).WithClock(env.clock.Now).Build()
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	got, found, err := second.SessionToken(ctx)
	if err != nil || !found || got.Value != want.Value {
		t.Fatalf("session token not persisted: found=%v err=%v", found, err)
	}

	// Past the token lifetime the slot reads as empty.
	env.clock.Advance(25 * time.Hour)
	if _, found, _ := second.SessionToken(ctx); found {
		t.Fatalf("expired session token still readable")
	}
}

func TestBuildWithCookieStore(t *testing.T) {
	store := vault.NewMemoryStore(nil)
	client, err := New().WithCookieStore(store).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer client.Close()
	if client.State() != StateIdle || client.Session().Authenticated {
		t.Fatalf("new client must start idle and signed out")
	}
}
