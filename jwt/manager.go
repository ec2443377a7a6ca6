package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minSecretLength = 32

var (
	// ErrInvalidConfig is returned by NewManager for unusable settings.
	ErrInvalidConfig = errors.New("invalid jwt configuration")
	// ErrWrongPurpose is returned when a token issued for one flow is presented to another.
	ErrWrongPurpose = errors.New("token purpose mismatch")
)

// Purpose scopes a token to a single flow.
type Purpose string

const (
	// PurposeAccess marks a session (bearer) token.
	PurposeAccess Purpose = "access"
	// PurposeReset marks the short-lived token returned by OTP verification.
	PurposeReset Purpose = "reset"
)

// Config holds the HS256 signing secret and default claims.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
	Now    func() time.Time
}

// Claims are the claims carried by every issued token.
type Claims struct {
	Purpose Purpose `json:"pur"`
	Email   string  `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 tokens.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrInvalidConfig, minSecretLength)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway out of range", ErrInvalidConfig)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a token for subject scoped to purpose. The returned id is the
// token's "jti" and can be used for revocation.
func (m *Manager) Issue(subject, email string, purpose Purpose, ttl time.Duration) (string, string, error) {
	if ttl <= 0 {
		return "", "", fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}

	now := m.config.Now()
	id := uuid.NewString()
	claims := Claims{
		Purpose: purpose,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", "", err
	}
	return signed, id, nil
}

// Parse verifies tokenStr and requires it to carry purpose.
func (m *Manager) Parse(tokenStr string, purpose Purpose) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
