package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/raunerlucas/app-gestao-projetos/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	TokenType string `json:"token_type"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	PersonID string `json:"person_id,omitempty"`
}

// registerResponse is the response body for POST /auth/register.
type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// refreshRequest is the request body for POST /auth/refresh.
type refreshRequest struct {
	Token string `json:"token"`
}

// refreshResponse is the response body for POST /auth/refresh.
type refreshResponse struct {
	TokenType string `json:"token_type"`
	Token     string `json:"token"`
}

// handleLogin verifies a credential and returns a signed token.
//
// Failures are uniform: unknown username and wrong password both produce the
// same 401 so callers cannot probe for registered usernames. A store that
// cannot be reached is the one distinguished case (503).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	principal, err := s.verifier.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			s.logger.Error("credential store unavailable during login", "error", err)
			writeServiceUnavailable(w, "authentication temporarily unavailable")
			return
		}
		writeUnauthorized(w, "invalid credentials")
		return
	}

	token, err := s.tokens.Issue(principal.Username)
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	s.logger.Info("login succeeded", "username", principal.Username)
	s.auditLog("login", "credential", "", principal.Username, nil)

	writeJSON(w, http.StatusOK, loginResponse{
		TokenType: "Bearer",
		Token:     token,
		ExpiresIn: int(s.tokens.Window().Seconds()),
	})
}

// handleRegister creates a new credential.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cred, err := s.verifier.Register(r.Context(), req.Username, req.Password, req.PersonID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrValidation):
			writeValidationError(w, err.Error())
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, "username already exists")
		default:
			s.logger.Error("register failed", "error", err)
			writeInternalError(w, "failed to register")
		}
		return
	}

	s.logger.Info("credential registered", "credential_id", cred.ID, "username", cred.Username)
	s.auditLog("register", "credential", cred.ID, cred.Username, map[string]any{
		"username": cred.Username,
	})

	writeJSON(w, http.StatusCreated, registerResponse{
		ID:       cred.ID,
		Username: cred.Username,
	})
}

// handleRefresh exchanges a still-valid token for a fresh one with a full window.
// Expired or tampered tokens are rejected; there is no grace period.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}

	token, err := s.tokens.Refresh(req.Token)
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		TokenType: "Bearer",
		Token:     token,
	})
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	username  string
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the token in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	ticket := generateTicket()

	s.tickets.mu.Lock()
	s.tickets.tickets[ticket] = ticketEntry{
		username:  usernameFrom(r.Context()),
		expiresAt: time.Now().Add(ticketTTL),
	}
	s.tickets.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// consume checks if a ticket is valid and removes it (single-use).
func (ts *ticketStore) consume(ticket string) (ticketEntry, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}

	// Remove ticket (single-use)
	delete(ts.tickets, ticket)

	if time.Now().After(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// sweep removes expired tickets from the store.
func (ts *ticketStore) sweep() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

// sweepLoop runs sweep periodically until the context is cancelled.
func (ts *ticketStore) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ts.sweep()
		}
	}
}
