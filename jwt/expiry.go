package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expiry returns the "exp" claim of tokenStr without verifying its signature.
// ok is false for opaque tokens and tokens without an expiry.
func Expiry(tokenStr string) (time.Time, bool) {
	if tokenStr == "" {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// BoundTTL shortens ttl so a stored token never outlives its own "exp" claim.
// Tokens that already expired yield zero.
func BoundTTL(tokenStr string, ttl time.Duration, now time.Time) time.Duration {
	exp, ok := Expiry(tokenStr)
	if !ok {
		return ttl
	}
	left := exp.Sub(now)
	if left <= 0 {
		return 0
	}
	if left < ttl {
		return left
	}
	return ttl
}
