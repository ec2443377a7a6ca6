package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		w.Header().Set("X-User", p.UserID)
		w.WriteHeader(http.StatusNoContent)
	})
}

func staticValidator(want string) Validator {
	return ValidatorFunc(func(_ context.Context, token string) (*Principal, error) {
		if token != want {
			return nil, errors.New("bad token")
		}
		return &Principal{UserID: "u1", Role: "admin"}, nil
	})
}

func TestGuard(t *testing.T) {
	h := Guard(staticValidator("good"))(okHandler())

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("header %q: status %d, want %d", tc.header, rec.Code, tc.status)
		}
		if tc.status == http.StatusNoContent && rec.Header().Get("X-User") != "u1" {
			t.Fatalf("principal not propagated")
		}
		if tc.status == http.StatusUnauthorized && rec.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("rejection must be a JSON envelope")
		}
	}
}

func TestRequireRole(t *testing.T) {
	v := ValidatorFunc(func(_ context.Context, token string) (*Principal, error) {
		return &Principal{UserID: token, Role: token}, nil
	})
	h := Guard(v)(RequireRole("admin")(okHandler()))

	for token, want := range map[string]int{"admin": http.StatusNoContent, "user": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("role %s: status %d, want %d", token, rec.Code, want)
		}
	}
}
