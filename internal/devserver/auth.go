package devserver

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/adminauth/internal/rate"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/middleware"
	"github.com/MrEthical07/adminauth/password"
	"github.com/pquerna/otp/totp"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if !s.throttleAllows(w, r, req.Email) {
		return
	}

	s.store.mu.RLock()
	u, found := s.store.userByEmail(req.Email)
	var snapshot user
	if found {
		snapshot = *u
	}
	s.store.mu.RUnlock()

	if !found {
		s.throttleFail(r, req.Email)
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	match, err := s.hasher.Verify(req.Password, snapshot.Hash)
	if err != nil && !errors.Is(err, password.ErrTooShort) && !errors.Is(err, password.ErrTooLong) {
		s.config.Logger.Printf("devserver: verifying password: %v", err)
		fail(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if !match {
		s.throttleFail(r, req.Email)
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.throttleReset(r, req.Email)
	if !snapshot.Active {
		fail(w, http.StatusForbidden, "Account is blocked")
		return
	}
	if snapshot.Role != RoleAdmin {
		fail(w, http.StatusForbidden, "Access denied")
		return
	}

	token, id, err := s.tokens.Issue(snapshot.ID, snapshot.Email, jwt.PurposeAccess, s.config.SessionTTL)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	s.store.mu.Lock()
	s.store.sessions[id] = snapshot.ID
	s.store.mu.Unlock()

	succeed(w, "Login successful", map[string]any{
		"user":        snapshot.public(),
		"accessToken": token,
	})
}

func (s *Server) throttleAllows(w http.ResponseWriter, r *http.Request, email string) bool {
	if s.config.Throttle == nil {
		return true
	}
	err := s.config.Throttle.Check(r.Context(), email)
	switch {
	case err == nil:
		return true
	case errors.Is(err, rate.ErrRateLimited):
		fail(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
	default:
		s.config.Logger.Printf("devserver: login throttle: %v", err)
		fail(w, http.StatusServiceUnavailable, "Something went wrong")
	}
	return false
}

func (s *Server) throttleFail(r *http.Request, email string) {
	if s.config.Throttle == nil {
		return
	}
	if _, err := s.config.Throttle.Fail(r.Context(), email); err != nil {
		s.config.Logger.Printf("devserver: login throttle: %v", err)
	}
}

func (s *Server) throttleReset(r *http.Request, email string) {
	if s.config.Throttle == nil {
		return
	}
	if err := s.config.Throttle.Reset(r.Context(), email); err != nil {
		s.config.Logger.Printf("devserver: login throttle: %v", err)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())

	s.store.mu.Lock()
	delete(s.store.sessions, p.TokenID)
	s.store.mu.Unlock()

	succeed(w, "Logged out", nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		fail(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	u := &user{Name: req.Name, Email: req.Email, Role: s.config.RegisterRole, Active: true, Hash: hash, CreatedAt: s.config.Now()}

	s.store.mu.Lock()
	added := s.store.addUser(u)
	s.store.mu.Unlock()
	if !added {
		fail(w, http.StatusConflict, "User already exists")
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Registration successful", Data: u.public()})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		fail(w, http.StatusBadRequest, "Email is required")
		return
	}

	email := normalizeEmail(req.Email)
	s.store.mu.RLock()
	_, found := s.store.userByEmail(email)
	s.store.mu.RUnlock()

	// Unknown accounts get the same answer.
	if found {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.config.Issuer,
			AccountName: email,
			Period:      s.otp.Period,
			Digits:      s.otp.Digits,
			Algorithm:   s.otp.Algorithm,
		})
		if err != nil {
			fail(w, http.StatusInternalServerError, "Something went wrong")
			return
		}
		code, err := totp.GenerateCodeCustom(key.Secret(), s.config.Now(), s.otp)
		if err != nil {
			fail(w, http.StatusInternalServerError, "Something went wrong")
			return
		}

		s.store.mu.Lock()
		s.store.otpSecrets[email] = key.Secret()
		s.store.mu.Unlock()
		s.deliverOTP(email, code)
	}

	succeed(w, "If the account exists, a code has been sent", nil)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	s.store.mu.RLock()
	secret, pending := s.store.otpSecrets[email]
	u, found := s.store.userByEmail(email)
	var userID string
	if found {
		userID = u.ID
	}
	s.store.mu.RUnlock()

	if !pending || !found {
		fail(w, http.StatusBadRequest, "Invalid or expired code")
		return
	}
	valid, err := totp.ValidateCustom(req.OTP, secret, s.config.Now(), s.otp)
	if err != nil || !valid {
		fail(w, http.StatusBadRequest, "Invalid or expired code")
		return
	}

	token, id, err := s.tokens.Issue(userID, email, jwt.PurposeReset, s.config.ResetTTL)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	s.store.mu.Lock()
	delete(s.store.otpSecrets, email)
	s.store.resets[id] = struct{}{}
	s.store.mu.Unlock()

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Code verified", Token: token})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		Password    string `json:"password"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	next := req.NewPassword
	if next == "" {
		next = req.Password
	}

	claims, err := s.tokens.Parse(req.Token, jwt.PurposeReset)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.resets[claims.ID]; !ok {
		fail(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	u, ok := s.store.users[claims.Subject]
	if !ok {
		fail(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	delete(s.store.resets, claims.ID)
	u.Hash = hash
	s.store.revokeUser(u.ID)

	succeed(w, "Password reset successful", nil)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	current := req.CurrentPassword
	if current == "" {
		current = req.OldPassword
	}

	s.store.mu.RLock()
	u, ok := s.store.users[p.UserID]
	var hash string
	if ok {
		hash = u.Hash
	}
	s.store.mu.RUnlock()
	if !ok {
		fail(w, http.StatusNotFound, "User not found")
		return
	}

	match, _ := s.hasher.Verify(current, hash)
	if !match {
		fail(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.mu.Lock()
	if u, ok := s.store.users[p.UserID]; ok {
		u.Hash = newHash
	}
	s.store.mu.Unlock()

	succeed(w, "Password updated", nil)
}
