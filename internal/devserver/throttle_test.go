package devserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLoginThrottle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	limiter, err := rate.New(rdb, rate.Config{MaxAttempts: 2, Window: time.Minute})
	if err != nil {
		t.Fatalf("rate.New: %v", err)
	}
	cfg := DefaultConfig(testSecret)
	cfg.Throttle = limiter
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.AddUser("Root", "root@example.com", "correct-horse", RoleAdmin); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	bad := map[string]string{"email": "root@example.com", "password": "wrong-pass"}
	for i := 0; i < 2; i++ {
		if res := call(t, s, http.MethodPost, "/api/admin/login", "", bad); res.status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i+1, res.status)
		}
	}
	res := call(t, s, http.MethodPost, "/api/admin/login", "", map[string]string{"email": "ROOT@example.com", "password": "correct-horse"})
	if res.status != http.StatusTooManyRequests || res.Success {
		t.Fatalf("expected 429, got %d %q", res.status, res.Message)
	}

	mr.FastForward(time.Minute)
	login(t, s, "root@example.com", "correct-horse")

	// A successful sign-in clears the window.
	call(t, s, http.MethodPost, "/api/admin/login", "", bad)
	login(t, s, "root@example.com", "correct-horse")
	if n, _ := limiter.Attempts(t.Context(), "root@example.com"); n != 0 {
		t.Fatalf("attempts after success = %d", n)
	}
}
