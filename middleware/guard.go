package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID  string
	Email   string
	Role    string
	TokenID string
	Token   string
}

// Validator resolves a bearer token to a Principal.
type Validator interface {
	Validate(ctx context.Context, token string) (*Principal, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, token string) (*Principal, error)

func (f ValidatorFunc) Validate(ctx context.Context, token string) (*Principal, error) {
	return f(ctx, token)
}

type principalContextKey struct{}

// PrincipalFromContext returns the Principal set by Guard.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok
}

// Guard rejects requests without a valid bearer token with 401 and the JSON
// envelope the admin client expects.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				reject(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			p, err := v.Validate(r.Context(), token)
			if err != nil || p == nil {
				reject(w, http.StatusUnauthorized, "Session expired")
				return
			}
			p.Token = token

			ctx := context.WithValue(r.Context(), principalContextKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
