package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth/vault"
	"github.com/google/uuid"
)

type countingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *countingNavigator) Navigate(route string) {
	n.mu.Lock()
	n.routes = append(n.routes, route)
	n.mu.Unlock()
}

func (n *countingNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.routes)
}

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New(vault.NewMemoryStore(nil), nil, vault.Options{})
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	return v
}

func newTestGateway(t *testing.T, url string, v *vault.Vault, opts ...Option) *Gateway {
	t.Helper()
	opts = append([]Option{WithLogger(log.New(io.Discard, "", 0))}, opts...)
	g, err := New(Config{BaseURL: url, Timeout: 2 * time.Second}, v, opts...)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return g
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestSendAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotID, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("X-Request-ID")
		gotType = r.Header.Get("Content-Type")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"count": 3}})
	}))
	defer srv.Close()

	v := newTestVault(t)
	if err := v.Store(context.Background(), vault.SessionToken, "tok-1", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	g := newTestGateway(t, srv.URL+"/api", v)

	var out struct {
		Count int `json:"count"`
	}
	if err := g.Do(context.Background(), Request{Method: http.MethodPost, Path: "/admin/dashboard", Body: map[string]string{"a": "b"}}, &out); err != nil {
		t.Fatalf("do: %v", err)
	}
	if out.Count != 3 {
		t.Fatalf("expected decoded count 3, got %d", out.Count)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if _, err := uuid.Parse(gotID); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", gotID, err)
	}
	if gotType != "application/json" {
		t.Fatalf("unexpected content type %q", gotType)
	}
}

func TestSendWithoutTokenOmitsAuthorization(t *testing.T) {
	var gotAuth atomic.Value
	gotAuth.Store("unset")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL, newTestVault(t))
	if _, err := g.Send(context.Background(), Request{Path: "/ping"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := gotAuth.Load().(string); got != "" {
		t.Fatalf("expected no authorization header, got %q", got)
	}
}

func TestAnonymousRequestSkipsToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "bad password"})
	}))
	defer srv.Close()

	v := newTestVault(t)
	if err := v.Store(context.Background(), vault.SessionToken, "stale", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	nav := &countingNavigator{}
	g := newTestGateway(t, srv.URL, v, WithNavigator(nav))

	_, err := g.Send(context.Background(), Request{Method: http.MethodPost, Path: "/api/admin/login", Anonymous: true})
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous 401 must not revoke the session")
	}
	if got := gotAuth.Load().(string); got != "" {
		t.Fatalf("anonymous request carried authorization %q", got)
	}
	if _, ok, _ := v.Read(context.Background(), vault.SessionToken); !ok {
		t.Fatalf("session token must survive an anonymous 401")
	}
	if nav.count() != 0 {
		t.Fatalf("no navigation expected")
	}
}

func TestConcurrentUnauthorizedTearsDownOnce(t *testing.T) {
	const n = 8
	var arrived sync.WaitGroup
	arrived.Add(n)
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived.Done()
		<-release
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "token revoked"})
	}))
	defer srv.Close()

	v := newTestVault(t)
	if err := v.Store(context.Background(), vault.SessionToken, "tok-1", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	nav := &countingNavigator{}
	g := newTestGateway(t, srv.URL, v, WithNavigator(nav))

	var notified atomic.Int32
	g.OnUnauthorized(func() { notified.Add(1) })

	errs := make(chan error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := g.Send(context.Background(), Request{Path: "/admin/users"})
			errs <- err
		}()
	}
	arrived.Wait()
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Status != http.StatusUnauthorized || reqErr.Message != "token revoked" {
			t.Fatalf("unexpected request error %#v", err)
		}
	}
	if got := nav.count(); got != 1 {
		t.Fatalf("expected exactly one navigation, got %d", got)
	}
	if got := notified.Load(); got != 1 {
		t.Fatalf("expected exactly one notification, got %d", got)
	}
	if got := g.Teardowns(); got != 1 {
		t.Fatalf("expected one teardown, got %d", got)
	}
	if nav.routes[0] != DefaultLoginRoute {
		t.Fatalf("unexpected route %q", nav.routes[0])
	}
	if _, ok, _ := v.Read(context.Background(), vault.SessionToken); ok {
		t.Fatalf("session token should be cleared after teardown")
	}
}

func TestUnauthenticatedUnauthorizedIsPlainFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
	}))
	defer srv.Close()

	nav := &countingNavigator{}
	g := newTestGateway(t, srv.URL, newTestVault(t), WithNavigator(nav))

	_, err := g.Send(context.Background(), Request{Method: http.MethodPost, Path: "/admin/login"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unauthenticated 401 must not be reported as a revoked session")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Message != "Invalid credentials" || reqErr.Transport() {
		t.Fatalf("unexpected request error %#v", err)
	}
	if nav.count() != 0 || g.Teardowns() != 0 {
		t.Fatalf("no teardown expected")
	}
}

func TestLateUnauthorizedFromPreviousSessionIsIgnored(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false})
	}))
	defer srv.Close()

	ctx := context.Background()
	v := newTestVault(t)
	if err := v.Store(ctx, vault.SessionToken, "old", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	nav := &countingNavigator{}
	g := newTestGateway(t, srv.URL, v, WithNavigator(nav))

	done := make(chan error, 1)
	go func() {
		_, err := g.Send(ctx, Request{Path: "/admin/events"})
		done <- err
	}()

	<-entered
	if err := v.Store(ctx, vault.SessionToken, "new", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	g.BeginSession()
	close(release)

	if err := <-done; !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if nav.count() != 0 {
		t.Fatalf("stale 401 must not navigate")
	}
	if tok, ok, _ := v.Read(ctx, vault.SessionToken); !ok || tok != "new" {
		t.Fatalf("new session token must survive, got %q ok=%v", tok, ok)
	}
}

func TestOnUnauthorizedUnsubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ctx := context.Background()
	v := newTestVault(t)
	g := newTestGateway(t, srv.URL, v)

	var calls atomic.Int32
	unsubscribe := g.OnUnauthorized(func() { calls.Add(1) })
	unsubscribe()

	if err := v.Store(ctx, vault.SessionToken, "tok", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	_, err := g.Send(ctx, Request{Path: "/x"})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Message == "" {
		t.Fatalf("expected request error with fallback message, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("unsubscribed listener was called")
	}
	if g.Teardowns() != 1 {
		t.Fatalf("expected teardown without listeners")
	}
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		message   string
		transport bool
		sentinel  error
	}{
		{"server message", http.StatusInternalServerError, `{"success":false,"message":"db down"}`, "db down", true, ErrRequestFailed},
		{"status text fallback", http.StatusBadRequest, ``, "Bad Request", false, ErrRequestFailed},
		{"unsuccessful envelope", http.StatusOK, `{"success":false}`, "Request failed, try again", false, ErrRequestFailed},
		{"unsuccessful envelope message", http.StatusOK, `{"success":false,"message":"Email already used"}`, "Email already used", false, ErrRequestFailed},
		{"malformed body", http.StatusOK, `<html>`, malformedMessage, true, ErrMalformedResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			g := newTestGateway(t, srv.URL, newTestVault(t))
			_, err := g.Send(context.Background(), Request{Path: "/x"})

			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("expected *RequestError, got %T %v", err, err)
			}
			if reqErr.Message != tc.message {
				t.Fatalf("message = %q, want %q", reqErr.Message, tc.message)
			}
			if reqErr.Status != tc.status {
				t.Fatalf("status = %d, want %d", reqErr.Status, tc.status)
			}
			if reqErr.Transport() != tc.transport {
				t.Fatalf("transport = %v, want %v", reqErr.Transport(), tc.transport)
			}
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected %v in chain, got %v", tc.sentinel, err)
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	var observed atomic.Int32
	g := newTestGateway(t, url, newTestVault(t), WithObserver(observerFunc(func(_, _ string, status int, _ time.Duration) {
		if status == 0 {
			observed.Add(1)
		}
	})))

	_, err := g.Send(context.Background(), Request{Path: "/x"})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Status != 0 || !reqErr.Transport() {
		t.Fatalf("expected transport request error, got %#v", err)
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport in chain")
	}
	if observed.Load() != 1 {
		t.Fatalf("expected observer to see the failed round trip")
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	g, err := New(Config{BaseURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1}, newTestVault(t),
		WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	if _, err := g.Send(context.Background(), Request{Path: "/x"}); err != nil {
		t.Fatalf("first send within burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Send(ctx, Request{Path: "/x"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected limiter wait to fail as transport error, got %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}, newTestVault(t)); err == nil {
		t.Fatalf("expected invalid base url error")
	}
	if _, err := New(Config{BaseURL: "http://localhost"}, nil); err == nil {
		t.Fatalf("expected missing credentials error")
	}
}

type observerFunc func(method, path string, status int, elapsed time.Duration)

func (f observerFunc) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	f(method, path, status, elapsed)
}
