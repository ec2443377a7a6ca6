package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind identifies which token slot a record occupies.
type Kind uint8

const (
	// SessionToken is the long-lived bearer credential, kept in durable storage.
	SessionToken Kind = iota + 1
	// OTPToken is the short-lived token returned by OTP verification, kept in
	// volatile storage.
	OTPToken
)

func (k Kind) String() string {
	switch k {
	case SessionToken:
		return "session"
	case OTPToken:
		return "otp"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownKind is returned for token kinds the vault does not manage.
	ErrUnknownKind = errors.New("unknown token kind")
	// ErrCorruptRecord indicates a stored record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt token record")
)

// Record is a stored token with its absolute expiry.
type Record struct {
	Kind      Kind
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is no longer live at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// String redacts the token value so records are safe to log.
func (r Record) String() string {
	return fmt.Sprintf("%s token (issued %s, expires %s)", r.Kind,
		r.IssuedAt.UTC().Format(time.RFC3339), r.ExpiresAt.UTC().Format(time.RFC3339))
}

type wireRecord struct {
	Kind      Kind   `json:"k"`
	Value     string `json:"v"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Options configures key names, cookie attributes and the clock.
type Options struct {
	SessionKey string
	OTPKey     string
	SameSite   http.SameSite
	Now        func() time.Time
}

// Vault is the single source of truth for "is there a live token of kind K".
// Session tokens go to the durable store and OTP tokens to the volatile one.
type Vault struct {
	durable  CookieStore
	volatile CookieStore
	opts     Options
}

// New creates a vault. A nil volatile store defaults to an in-memory one.
func New(durable, volatile CookieStore, opts Options) (*Vault, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if durable == nil {
		return nil, fmt.Errorf("%w: durable store required", ErrStoreUnavailable)
	}
	if volatile == nil {
		volatile = NewMemoryStore(opts.Now)
	}
	if opts.SessionKey == "" {
		opts.SessionKey = "authToken"
	}
	if opts.OTPKey == "" {
		opts.OTPKey = "access_token"
	}
	if opts.SessionKey == opts.OTPKey && durable == volatile {
		return nil, fmt.Errorf("%w: session and otp keys collide", ErrInvalidKey)
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteStrictMode
	}

	return &Vault{durable: durable, volatile: volatile, opts: opts}, nil
}

func (v *Vault) slot(kind Kind) (CookieStore, string, error) {
	switch kind {
	case SessionToken:
		return v.durable, v.opts.SessionKey, nil
	case OTPToken:
		return v.volatile, v.opts.OTPKey, nil
	default:
		return nil, "", ErrUnknownKind
	}
}

// Store persists value with an absolute expiry of now+ttl, replacing any
// existing token of the same kind.
func (v *Vault) Store(ctx context.Context, kind Kind, value string, ttl time.Duration) error {
	store, key, err := v.slot(kind)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("invalid %s token ttl %s", kind, ttl)
	}

	now := v.opts.Now()
	data, err := json.Marshal(wireRecord{
		Kind:      kind,
		Value:     value,
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		return err
	}

	return store.Set(ctx, key, string(data), CookieOptions{
		ExpiryDays: ExpiryDaysFor(ttl),
		SameSite:   v.opts.SameSite,
	})
}

// Record returns the live record of kind. Expired records are removed on
// this read and reported as absent.
func (v *Vault) Record(ctx context.Context, kind Kind) (Record, bool, error) {
	store, key, err := v.slot(kind)
	if err != nil {
		return Record{}, false, err
	}

	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return Record{}, false, err
	}

	var w wireRecord
	if err := json.Unmarshal([]byte(raw), &w); err != nil || w.Kind != kind {
		// An unreadable slot is as good as empty; drop it so the next
		// Store starts clean.
		_ = store.Remove(ctx, key)
		return Record{}, false, ErrCorruptRecord
	}

	rec := Record{
		Kind:      w.Kind,
		Value:     w.Value,
		IssuedAt:  time.UnixMilli(w.IssuedAt),
		ExpiresAt: time.UnixMilli(w.ExpiresAt),
	}
	if rec.Expired(v.opts.Now()) {
		if err := store.Remove(ctx, key); err != nil {
			return Record{}, false, err
		}
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Read returns the token value of kind if a live one exists.
func (v *Vault) Read(ctx context.Context, kind Kind) (string, bool, error) {
	rec, ok, err := v.Record(ctx, kind)
	if err != nil || !ok {
		return "", false, err
	}
	return rec.Value, true, nil
}

// Clear removes the token of kind. Clearing an empty slot succeeds.
func (v *Vault) Clear(ctx context.Context, kind Kind) error {
	store, key, err := v.slot(kind)
	if err != nil {
		return err
	}
	return store.Remove(ctx, key)
}

// ClearAll removes every token. Both slots are attempted even if the first
// removal fails.
func (v *Vault) ClearAll(ctx context.Context) error {
	return errors.Join(
		v.Clear(ctx, SessionToken),
		v.Clear(ctx, OTPToken),
	)
}
