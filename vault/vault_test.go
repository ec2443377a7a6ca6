package vault

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newMemoryVault(t *testing.T, clock *fakeClock) (*Vault, *MemoryStore) {
	t.Helper()
	durable := NewMemoryStore(clock.Now)
	v, err := New(durable, nil, Options{Now: clock.Now})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return v, durable
}

func TestSessionTokenRoundTripBeforeExpiry(t *testing.T) {
	clock := newFakeClock()
	v, _ := newMemoryVault(t, clock)
	ctx := context.Background()

	if err := v.Store(ctx, SessionToken, "tok-1", 7*24*time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}

	clock.Advance(7*24*time.Hour - time.Second)
	got, ok, err := v.Read(ctx, SessionToken)
	if err != nil || !ok {
		t.Fatalf("read before expiry: ok=%v err=%v", ok, err)
	}
	if got != "tok-1" {
		t.Fatalf("expected identical value, got %q", got)
	}
}

func TestReadAfterExpiryIsAbsentWithoutCleanup(t *testing.T) {
	clock := newFakeClock()
	v, durable := newMemoryVault(t, clock)
	ctx := context.Background()

	if err := v.Store(ctx, OTPToken, "otp-1", 30*time.Minute); err != nil {
		t.Fatalf("store otp: %v", err)
	}
	if err := v.Store(ctx, SessionToken, "tok-1", time.Hour); err != nil {
		t.Fatalf("store session: %v", err)
	}

	clock.Advance(30 * time.Minute)
	if _, ok, err := v.Read(ctx, OTPToken); err != nil || ok {
		t.Fatalf("expected otp token absent at expiry, ok=%v err=%v", ok, err)
	}

	clock.Advance(31 * time.Minute)
	if _, ok, err := v.Read(ctx, SessionToken); err != nil || ok {
		t.Fatalf("expected session token absent after ttl, ok=%v err=%v", ok, err)
	}
	if durable.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted on read, %d left", durable.Len())
	}
}

func TestStoreOverwritesSameKind(t *testing.T) {
	clock := newFakeClock()
	v, _ := newMemoryVault(t, clock)
	ctx := context.Background()

	_ = v.Store(ctx, SessionToken, "first", time.Hour)
	_ = v.Store(ctx, SessionToken, "second", time.Hour)

	got, _, _ := v.Read(ctx, SessionToken)
	if got != "second" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestClearIsIdempotentAndClearAllEmptiesBothSlots(t *testing.T) {
	clock := newFakeClock()
	v, _ := newMemoryVault(t, clock)
	ctx := context.Background()

	if err := v.Clear(ctx, SessionToken); err != nil {
		t.Fatalf("clear empty slot: %v", err)
	}

	_ = v.Store(ctx, SessionToken, "s", time.Hour)
	_ = v.Store(ctx, OTPToken, "o", time.Hour)
	if err := v.ClearAll(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if err := v.ClearAll(ctx); err != nil {
		t.Fatalf("second clear all: %v", err)
	}

	for _, kind := range []Kind{SessionToken, OTPToken} {
		if _, ok, _ := v.Read(ctx, kind); ok {
			t.Fatalf("expected %s slot empty", kind)
		}
	}
}

func TestCorruptRecordReadsAsAbsent(t *testing.T) {
	clock := newFakeClock()
	v, durable := newMemoryVault(t, clock)
	ctx := context.Background()

	_ = durable.Set(ctx, "authToken", "not-json", CookieOptions{ExpiryDays: 1})
	_, ok, err := v.Read(ctx, SessionToken)
	if ok || !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, ok=%v err=%v", ok, err)
	}
	if _, ok, err := v.Read(ctx, SessionToken); ok || err != nil {
		t.Fatalf("corrupt slot should be dropped, ok=%v err=%v", ok, err)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	clock := newFakeClock()
	v, _ := newMemoryVault(t, clock)

	if err := v.Store(context.Background(), Kind(9), "x", time.Hour); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestRecordStringRedactsValue(t *testing.T) {
	rec := Record{Kind: SessionToken, Value: "super-secret", IssuedAt: time.Unix(0, 0), ExpiresAt: time.Unix(60, 0)}
	if s := rec.String(); s == "" || strings.Contains(s, "super-secret") {
		t.Fatalf("record string leaked the token: %q", s)
	}
}

func TestCookieOptionsTTL(t *testing.T) {
	if got := (CookieOptions{ExpiryDays: 7}).TTL(); got != 7*24*time.Hour {
		t.Fatalf("expected 7 days, got %v", got)
	}
	// 0.02 days, the original half-hour OTP cookie.
	if got := (CookieOptions{ExpiryDays: 0.02}).TTL(); got != 1728*time.Second {
		t.Fatalf("expected 1728s, got %v", got)
	}
	if got := ExpiryDaysFor(30 * time.Minute); got <= 0.0208 || got >= 0.0209 {
		t.Fatalf("unexpected expiry days %v", got)
	}
}
