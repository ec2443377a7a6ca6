package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/MrEthical07/adminauth/internal/rate"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/middleware"
	"github.com/MrEthical07/adminauth/password"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// RoleAdmin may use the admin resources.
	RoleAdmin = "admin"

	maxBodyBytes = 1 << 20
)

var errSessionRevoked = errors.New("session revoked")

// Config configures a Server.
type Config struct {
	// Secret signs session and reset tokens; at least 32 bytes.
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	ResetTTL   time.Duration
	// OTPPeriod is the validity window of a reset code, in seconds.
	OTPPeriod uint
	// RegisterRole is the role given to self-registered accounts.
	RegisterRole string
	// OTPSink receives every reset code. Without one codes are only logged.
	OTPSink func(email, code string)
	Now     func() time.Time
	Logger  *log.Logger
	// Hashing overrides the Argon2id cost; zero means password.FastConfig.
	Hashing password.Config
	// Throttle, when set, limits failed sign-ins per email address.
	Throttle *rate.Limiter
}

// DefaultConfig returns a development configuration with the given secret.
func DefaultConfig(secret []byte) Config {
	return Config{
		Secret:       secret,
		Issuer:       "adminauth-devserver",
		SessionTTL:   24 * time.Hour,
		ResetTTL:     10 * time.Minute,
		OTPPeriod:    300,
		RegisterRole: RoleAdmin,
	}
}

// Server is the in-memory backend. It implements http.Handler.
type Server struct {
	config Config
	tokens *jwt.Manager
	hasher *password.Argon2
	otp    totp.ValidateOpts
	router *mux.Router
	store  *store
}

// New creates a Server with no accounts.
func New(cfg Config) (*Server, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 10 * time.Minute
	}
	if cfg.OTPPeriod == 0 {
		cfg.OTPPeriod = 300
	}
	if cfg.RegisterRole == "" {
		cfg.RegisterRole = RoleAdmin
	}
	if cfg.Hashing == (password.Config{}) {
		cfg.Hashing = password.FastConfig()
	}

	tokens, err := jwt.NewManager(jwt.Config{Secret: cfg.Secret, Issuer: cfg.Issuer, Now: cfg.Now})
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewArgon2(cfg.Hashing)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config: cfg,
		tokens: tokens,
		hasher: hasher,
		otp: totp.ValidateOpts{
			Period:    cfg.OTPPeriod,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
		store: newStore(),
	}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, "Not found")
	})

	guard := middleware.Guard(middleware.ValidatorFunc(s.validate))

	r.HandleFunc("/api/admin/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/send-otp/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify-otp", s.handleVerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	r.Handle("/api/auth/update-password", guard(http.HandlerFunc(s.handleUpdatePassword))).Methods(http.MethodPost)
	r.Handle("/api/admin/logout", guard(http.HandlerFunc(s.handleLogout))).Methods(http.MethodPost)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(mux.MiddlewareFunc(guard), mux.MiddlewareFunc(middleware.RequireRole(RoleAdmin)))
	admin.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.handleUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", s.handleUser).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/status", s.handleUserStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/users/{id}/restrict", s.handleUserRestrict).Methods(http.MethodPatch)
	admin.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	admin.HandleFunc("/events/{id}", s.handleEvent).Methods(http.MethodGet)
	admin.HandleFunc("/reports", s.handleReports).Methods(http.MethodGet)
	admin.HandleFunc("/reports/{id}", s.handleReport).Methods(http.MethodGet)
	admin.HandleFunc("/notifications", s.handleNotifications).Methods(http.MethodGet)
	admin.HandleFunc("/notifications", s.handleCreateNotification).Methods(http.MethodPost)
	admin.HandleFunc("/notifications/{id}", s.handleNotification).Methods(http.MethodGet)
	admin.HandleFunc("/notifications/{id}", s.handleUpdateNotification).Methods(http.MethodPut)
	admin.HandleFunc("/notifications/{id}", s.handleDeleteNotification).Methods(http.MethodDelete)

	s.router = r
}

// AddUser creates an account and returns its id.
func (s *Server) AddUser(name, email, pass, role string) (string, error) {
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return "", err
	}
	u := &user{Name: name, Email: email, Role: role, Active: true, Hash: hash, CreatedAt: s.config.Now()}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if !s.store.addUser(u) {
		return "", fmt.Errorf("user %s already exists", email)
	}
	return u.ID, nil
}

// RevokeSessions invalidates every session of the account with email, as an
// administrator acting on another console would. It returns how many sessions
// were dropped.
func (s *Server) RevokeSessions(email string) int {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	u, ok := s.store.userByEmail(email)
	if !ok {
		return 0
	}
	return s.store.revokeUser(u.ID)
}

// ActiveSessions reports how many sessions are live for email.
func (s *Server) ActiveSessions(email string) int {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	u, ok := s.store.userByEmail(email)
	if !ok {
		return 0
	}
	n := 0
	for _, owner := range s.store.sessions {
		if owner == u.ID {
			n++
		}
	}
	return n
}

// AddEvent seeds an event and returns its id.
func (s *Server) AddEvent(fields map[string]any) string {
	return s.seed(&s.store.events, fields)
}

// AddReport seeds a report and returns its id.
func (s *Server) AddReport(fields map[string]any) string {
	return s.seed(&s.store.reports, fields)
}

func (s *Server) seed(dst *[]map[string]any, fields map[string]any) string {
	doc := copyDoc(fields)
	id := uuid.NewString()
	doc["_id"] = id
	doc["createdAt"] = s.config.Now().UTC().Format(time.RFC3339)

	s.store.mu.Lock()
	*dst = append(*dst, doc)
	s.store.mu.Unlock()
	return id
}

// validate resolves a bearer token to a principal. Only tokens whose id is
// still tracked are accepted.
func (s *Server) validate(_ context.Context, token string) (*middleware.Principal, error) {
	claims, err := s.tokens.Parse(token, jwt.PurposeAccess)
	if err != nil {
		return nil, err
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	owner, ok := s.store.sessions[claims.ID]
	if !ok || owner != claims.Subject {
		return nil, errSessionRevoked
	}
	u, ok := s.store.users[owner]
	if !ok || !u.Active {
		return nil, errSessionRevoked
	}
	return &middleware.Principal{UserID: u.ID, Email: u.Email, Role: u.Role, TokenID: claims.ID}, nil
}

func (s *Server) deliverOTP(email, code string) {
	if s.config.OTPSink != nil {
		s.config.OTPSink(email, code)
		return
	}
	s.config.Logger.Printf("devserver: reset code for %s is %s", email, code)
}

func copyDoc(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func succeed(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
