package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/adminauth/vault"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single round trip.
	DefaultTimeout = 30 * time.Second
	// DefaultLoginRoute is where callers are sent after a session is revoked.
	DefaultLoginRoute = "/auth/login"
	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024

	requestIDHeader = "X-Request-ID"
)

// Credentials is the slice of the token vault the gateway needs.
type Credentials interface {
	Read(ctx context.Context, kind vault.Kind) (string, bool, error)
	Clear(ctx context.Context, kind vault.Kind) error
}

// Navigator moves the hosting shell to a route. It is invoked only when a
// session is torn down after an authorization failure.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Observer receives one call per completed round trip. status is zero for
// transport failures.
type Observer interface {
	ObserveRequest(method, path string, status int, elapsed time.Duration)
}

// Config configures a Gateway.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	LoginRoute        string
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// Request describes one outbound call. Body is encoded as JSON when non-nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	// Anonymous sends the call without the session token, so a 401 is an
	// ordinary failure rather than a revoked session.
	Anonymous bool
}

// Envelope is the backend's uniform response shape.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Token   string          `json:"token,omitempty"`

	Status int `json:"-"`
}

// Decode unmarshals the envelope's data into v. An absent data field leaves v
// untouched.
func (e *Envelope) Decode(v any) error {
	if e == nil || len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return &RequestError{Message: malformedMessage, Status: e.Status, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return nil
}

// Gateway wraps every outbound call: it attaches the session token, normalizes
// failures into *RequestError and tears the session down on authorization
// failures.
type Gateway struct {
	config    Config
	base      *url.URL
	http      *http.Client
	creds     Credentials
	limiter   *rate.Limiter
	navigator Navigator
	observer  Observer
	logger    *log.Logger

	mu         sync.Mutex
	generation uint64
	listeners  map[uint64]func()
	nextID     uint64

	teardowns atomic.Uint64
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.http = c
		}
	}
}

// WithNavigator sets the navigation primitive used after a teardown.
func WithNavigator(n Navigator) Option {
	return func(g *Gateway) { g.navigator = n }
}

// WithObserver sets the round-trip observer.
func WithObserver(o Observer) Option {
	return func(g *Gateway) { g.observer = o }
}

// WithLogger sets the logger. Token values are never written to it.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Gateway over creds.
func New(cfg Config, creds Credentials, opts ...Option) (*Gateway, error) {
	if creds == nil {
		return nil, errors.New("gateway requires a credential source")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = DefaultLoginRoute
	}

	g := &Gateway{
		config:    cfg,
		base:      base,
		http:      &http.Client{Timeout: cfg.Timeout},
		creds:     creds,
		logger:    log.Default(),
		listeners: make(map[uint64]func()),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// OnUnauthorized registers fn to run once per teardown. The returned function
// removes the subscription.
func (g *Gateway) OnUnauthorized(fn func()) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// BeginSession starts a new credential generation. Late 401s for requests sent
// under an earlier credential no longer tear anything down. Call it whenever
// the session token is replaced or cleared by the owner.
func (g *Gateway) BeginSession() {
	g.mu.Lock()
	g.generation++
	g.mu.Unlock()
}

// Teardowns returns how many session teardowns the gateway has performed.
func (g *Gateway) Teardowns() uint64 {
	return g.teardowns.Load()
}

// LoginRoute returns the route passed to the Navigator on teardown.
func (g *Gateway) LoginRoute() string {
	return g.config.LoginRoute
}

// Send performs req and returns the decoded envelope of a successful call.
// Every failure is a *RequestError; a 401 on an authenticated call also wraps
// ErrUnauthorized.
func (g *Gateway) Send(ctx context.Context, req Request) (*Envelope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, transportError(err)
		}
	}

	g.mu.Lock()
	generation := g.generation
	g.mu.Unlock()

	var (
		token  string
		authed bool
	)
	if !req.Anonymous {
		var err error
		token, authed, err = g.creds.Read(ctx, vault.SessionToken)
		if err != nil {
			// An unreadable vault sends the call unauthenticated.
			g.logger.Printf("gateway: session token unavailable: %v", err)
			authed = false
		}
	}

	httpReq, err := g.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, &RequestError{Message: err.Error(), Err: err}
	}
	if authed {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.http.Do(httpReq)
	if err != nil {
		g.observe(httpReq.Method, req.Path, 0, time.Since(start))
		g.logger.Printf("gateway: %s %s failed: %v", httpReq.Method, req.Path, err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	g.observe(httpReq.Method, req.Path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		g.teardown(ctx, generation)
		msg := messageFrom(body)
		if msg == "" {
			msg = "Session expired. Please log in again."
		}
		return nil, &RequestError{Message: msg, Status: resp.StatusCode, Err: ErrUnauthorized}
	}

	var env Envelope
	decodeErr := json.Unmarshal(body, &env)
	env.Status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, messageFrom(body))
	}
	if decodeErr != nil {
		return nil, &RequestError{
			Message: malformedMessage,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr),
		}
	}
	if !env.Success {
		return nil, failureError(resp.StatusCode, env.Message)
	}
	return &env, nil
}

// Do sends req and decodes the envelope's data into out when out is non-nil.
func (g *Gateway) Do(ctx context.Context, req Request, out any) error {
	env, err := g.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return env.Decode(out)
}

func (g *Gateway) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u := *g.base
	u.Path = g.base.Path + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if g.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", g.config.UserAgent)
	}
	httpReq.Header.Set(requestIDHeader, uuid.NewString())
	return httpReq, nil
}

// teardown clears the session and notifies subscribers exactly once per
// credential generation, however many in-flight requests observe the 401.
func (g *Gateway) teardown(ctx context.Context, generation uint64) {
	g.mu.Lock()
	if generation != g.generation {
		g.mu.Unlock()
		return
	}
	g.generation++
	listeners := make([]func(), 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	g.teardowns.Add(1)
	if err := g.creds.Clear(context.WithoutCancel(ctx), vault.SessionToken); err != nil {
		g.logger.Printf("gateway: clearing session token after 401: %v", err)
	}
	for _, fn := range listeners {
		fn()
	}
	g.logger.Printf("gateway: session revoked by server, redirecting to %s", g.config.LoginRoute)
	if g.navigator != nil {
		g.navigator.Navigate(g.config.LoginRoute)
	}
}

func (g *Gateway) observe(method, path string, status int, elapsed time.Duration) {
	if g.observer != nil {
		g.observer.ObserveRequest(method, path, status, elapsed)
	}
}

func messageFrom(body []byte) string {
	var probe struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.Message
}
