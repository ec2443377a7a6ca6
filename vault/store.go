package vault

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"
)

var (
	// ErrStoreUnavailable indicates the backing cookie store could not be reached.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrInvalidKey is returned for empty cookie keys.
	ErrInvalidKey = errors.New("invalid token store key")
)

// CookieOptions mirrors the attributes a browser cookie carries. ExpiryDays is
// fractional: 0.02 is roughly half an hour.
type CookieOptions struct {
	ExpiryDays float64
	SameSite   http.SameSite
}

// TTL converts ExpiryDays into a duration, rounded up to the next second.
// Non-positive values mean the entry does not expire on its own.
func (o CookieOptions) TTL() time.Duration {
	if o.ExpiryDays <= 0 {
		return 0
	}
	secs := math.Ceil(o.ExpiryDays * 24 * 60 * 60)
	return time.Duration(secs) * time.Second
}

// ExpiryDaysFor converts a ttl into cookie-style fractional days.
func ExpiryDaysFor(ttl time.Duration) float64 {
	if ttl <= 0 {
		return 0
	}
	return ttl.Hours() / 24
}

// CookieStore is a persistent, cookie-like key/value store addressed by fixed
// keys. Get reports found=false for missing keys without an error.
type CookieStore interface {
	Set(ctx context.Context, key, value string, opts CookieOptions) error
	Get(ctx context.Context, key string) (string, bool, error)
	Remove(ctx context.Context, key string) error
}
