package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/Hrideshsrivastava/audit-bridge/internal/auth"
	"github.com/Hrideshsrivastava/audit-bridge/internal/entity"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
)

const minPasswordLength = 6

type firmSignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleFirmSignup(w http.ResponseWriter, r *http.Request) {
	var req firmSignupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "Name and email are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password, s.deps.Config.Auth.BcryptCost)
	if err != nil {
		s.deps.Logger.Error("Failed to hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "Signup failed")
		return
	}

	firm := &entity.Firm{Name: req.Name, Email: req.Email, PasswordHash: hash}
	if err := s.deps.Firms.Create(r.Context(), firm); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			respondError(w, http.StatusBadRequest, "Email already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "Signup failed")
		return
	}

	s.deps.Metrics.IncrementCounter("auth.firm_signups", nil)
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Firm created"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleFirmLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	firm, err := s.deps.Firms.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if !auth.CheckPassword(firm.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.deps.Tokens.IssueFirm(firm.ID)
	if err != nil {
		s.deps.Logger.Error("Failed to issue firm token", "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	s.deps.Metrics.IncrementCounter("auth.firm_logins", nil)
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

type activateRequest struct {
	AccessKey string `json:"access_key"`
	Password  string `json:"password"`
}

func (s *Server) handleClientActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if req.AccessKey == "" {
		respondError(w, http.StatusBadRequest, "Access key is required")
		return
	}

	hash, err := auth.HashPassword(req.Password, s.deps.Config.Auth.BcryptCost)
	if err != nil {
		s.deps.Logger.Error("Failed to hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "Activation failed")
		return
	}

	client, err := s.deps.Clients.Activate(r.Context(), req.AccessKey, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusBadRequest, "Invalid or expired Access Key")
			return
		}
		respondError(w, http.StatusInternalServerError, "Activation failed")
		return
	}

	token, err := s.deps.Tokens.IssueClient(client.ID)
	if err != nil {
		s.deps.Logger.Error("Failed to issue client token", "error", err)
		respondError(w, http.StatusInternalServerError, "Activation failed")
		return
	}

	s.deps.Metrics.IncrementCounter("auth.client_activations", nil)
	respondJSON(w, http.StatusOK, map[string]string{"token": token, "email": client.Email})
}

func (s *Server) handleClientLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client, err := s.deps.Clients.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if !client.IsActive || client.PasswordHash == nil {
		respondError(w, http.StatusForbidden, "Account not active. Please use your Access Key first.")
		return
	}

	if !auth.CheckPassword(*client.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.deps.Tokens.IssueClient(client.ID)
	if err != nil {
		s.deps.Logger.Error("Failed to issue client token", "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	s.deps.Metrics.IncrementCounter("auth.client_logins", nil)
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// newAccessKey generates a one-time activation key.
func newAccessKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
