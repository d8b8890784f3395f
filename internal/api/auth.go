package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gridwatch/gridwatch-core/internal/audit"
	"github.com/gridwatch/gridwatch-core/internal/auth"
)

// registerRequest is the request body for POST /api/auth/register.
type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// authResponse is the response body for register and login.
type authResponse struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

// handleAuthRegister creates a dashboard account and returns it with a
// signed token.
func (s *Server) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, "username, email and password are required")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeBadRequest(w, "passwords do not match")
		return
	}

	user, token, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			writeBadRequest(w, "password must be at least 6 characters")
		case errors.Is(err, auth.ErrInvalidUsername):
			writeBadRequest(w, "invalid username")
		case errors.Is(err, auth.ErrUserExists):
			writeConflict(w, "username or email already exists")
		default:
			s.logger.Error("account registration failed", "error", err)
			writeInternalError(w, "internal server error")
		}
		return
	}

	s.logger.Info("account registered", "user_id", user.ID, "username", user.Username)
	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionUserRegister,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		UserID:     user.ID,
		Source:     audit.SourceHTTP,
		Details:    map[string]any{"username": user.Username},
	})
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

// loginRequest is the request body for POST /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleAuthLogin authenticates a username/password pair and returns the
// account with a fresh token.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, token, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionUserLogin,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		UserID:     user.ID,
		Source:     audit.SourceHTTP,
	})
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}
