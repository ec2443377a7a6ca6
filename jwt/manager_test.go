package jwt

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager(Config{Secret: []byte("short")}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestIssueParseRoundTrip(t *testing.T) {
	mgr, err := NewManager(Config{Secret: testSecret, Issuer: "adminauth-dev"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok, id, err := mgr.Issue("u1", "admin@example.com", PurposeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := mgr.Parse(tok, PurposeAccess)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "admin@example.com" || claims.ID != id {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsWrongPurpose(t *testing.T) {
	mgr, _ := NewManager(Config{Secret: testSecret})
	tok, _, _ := mgr.Issue("u1", "", PurposeReset, time.Minute)

	if _, err := mgr.Parse(tok, PurposeAccess); !errors.Is(err, ErrWrongPurpose) {
		t.Fatalf("expected ErrWrongPurpose, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, _ := NewManager(Config{Secret: testSecret, Now: func() time.Time { return now }})
	tok, _, _ := mgr.Issue("u1", "", PurposeAccess, time.Minute)

	later, _ := NewManager(Config{Secret: testSecret, Now: func() time.Time { return now.Add(2 * time.Minute) }})
	if _, err := later.Parse(tok, PurposeAccess); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	mgr, _ := NewManager(Config{Secret: testSecret})
	other, _ := NewManager(Config{Secret: []byte("ffffffffffffffffffffffffffffffff")})
	tok, _, _ := other.Issue("u1", "", PurposeAccess, time.Minute)

	if _, err := mgr.Parse(tok, PurposeAccess); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestExpiryAndBoundTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr, _ := NewManager(Config{Secret: testSecret, Now: func() time.Time { return now }})
	tok, _, _ := mgr.Issue("u1", "", PurposeAccess, 2*time.Hour)

	exp, ok := Expiry(tok)
	if !ok || !exp.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("unexpected expiry %v ok=%v", exp, ok)
	}

	if got := BoundTTL(tok, 7*24*time.Hour, now); got != 2*time.Hour {
		t.Fatalf("expected ttl bounded by exp, got %v", got)
	}
	if got := BoundTTL(tok, time.Hour, now); got != time.Hour {
		t.Fatalf("expected configured ttl when shorter, got %v", got)
	}
	if got := BoundTTL(tok, time.Hour, now.Add(3*time.Hour)); got != 0 {
		t.Fatalf("expected zero ttl for expired token, got %v", got)
	}
	if got := BoundTTL("opaque-token", time.Hour, now); got != time.Hour {
		t.Fatalf("opaque tokens keep the configured ttl, got %v", got)
	}
}
