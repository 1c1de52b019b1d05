package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raunerlucas/app-gestao-projetos/internal/audit"
	"github.com/raunerlucas/app-gestao-projetos/internal/auth"
	"github.com/raunerlucas/app-gestao-projetos/internal/infrastructure/config"
	"github.com/raunerlucas/app-gestao-projetos/internal/infrastructure/database"
	"github.com/raunerlucas/app-gestao-projetos/internal/infrastructure/logging"
	"github.com/raunerlucas/app-gestao-projetos/internal/people"
	"github.com/raunerlucas/app-gestao-projetos/internal/project"
	"github.com/raunerlucas/app-gestao-projetos/internal/schedule"
	_ "github.com/raunerlucas/app-gestao-projetos/migrations"
)

const testSigningKey = "test-secret-key-at-least-32-characters-long"

// testBcryptCost keeps password hashing fast in tests.
const testBcryptCost = 4

// testServer creates a Server backed by a migrated temp-file SQLite database.
func testServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "api_test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	store := auth.NewCredentialStore(db.DB)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:      log,
		DB:          db.DB,
		Tokens:      auth.NewTokenService([]byte(testSigningKey), 2*time.Hour),
		Verifier:    auth.NewVerifier(store, testBcryptCost),
		Authors:     people.NewAuthorRepository(db.DB),
		Evaluators:  people.NewEvaluatorRepository(db.DB),
		Projects:    project.NewProjectRepository(db.DB),
		Evaluations: project.NewEvaluationRepository(db.DB),
		Statuses:    project.NewStatusRepository(db.DB),
		Schedules:   schedule.NewRepository(db.DB),
		AuditRepo:   audit.NewSQLiteRepository(db.DB),
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests that broadcast without Start()
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(context.Background())

	return srv
}

// registerAndLogin creates a credential over the API and returns a bearer token.
func registerAndLogin(t *testing.T, router http.Handler) string {
	t.Helper()

	body := `{"username": "tester", "password": "hunter22", "person_id": "aut-test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "tester", "password": "hunter22"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login returned empty token")
	}
	return resp.Token
}

// authedRequest builds a request carrying a bearer token.
func authedRequest(method, target, body, token string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin not set")
	}
}

// ─── Route Gate Tests ──────────────────────────────────────────────

func TestProtectedRoute_NoToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/projects"},
		{http.MethodGet, "/api/v1/authors"},
		{http.MethodGet, "/api/v1/evaluators"},
		{http.MethodGet, "/api/v1/evaluations"},
		{http.MethodGet, "/api/v1/schedules"},
		{http.MethodGet, "/api/v1/prizes"},
		{http.MethodGet, "/api/v1/statuses"},
		{http.MethodGet, "/api/v1/audit"},
		{http.MethodGet, "/api/v1/metrics"},
		{http.MethodPost, "/api/v1/auth/ws-ticket"},
	}

	for _, tc := range protected {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want %d", tc.method, tc.path, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestProtectedRoute_GarbageToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestProtectedRoute_ExpiredToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	// Same key, but issued three hours ago: a two-hour token is expired by
	// the time the real clock validates it.
	past := func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expiredTokens := auth.NewTokenServiceWithClock([]byte(testSigningKey), 2*time.Hour, past)
	token, err := expiredTokens.Issue("tester")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := authedRequest(http.MethodGet, "/api/v1/projects", "", token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// ─── Auth Flow Tests ───────────────────────────────────────────────

func TestRegisterLoginAndAccess(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	token := registerAndLogin(t, router)

	req := authedRequest(http.MethodGet, "/api/v1/projects", "", token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("authenticated list status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	body := `{"username": "dupe", "password": "hunter22", "person_id": "aut-test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, want %d", w.Code, http.StatusCreated)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want %d", w.Code, http.StatusConflict)
	}

	var apiErr Error
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if apiErr.Code != ErrCodeConflict {
		t.Errorf("error code = %q, want %q", apiErr.Code, ErrCodeConflict)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	cases := []string{
		`{"username": "", "password": "hunter22"}`,
		`{"username": "tester", "password": ""}`,
		`{"username": "bad name!", "password": "hunter22"}`,
	}

	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("register %s status = %d, want %d", body, w.Code, http.StatusBadRequest)
		}
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	registerAndLogin(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "tester", "password": "wrong"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownUsername_SameResponseAsWrongPassword(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	registerAndLogin(t, router)

	wrongPass := httptest.NewRecorder()
	router.ServeHTTP(wrongPass, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "tester", "password": "wrong"}`)))

	unknownUser := httptest.NewRecorder()
	router.ServeHTTP(unknownUser, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "nobody", "password": "wrong"}`)))

	if wrongPass.Code != unknownUser.Code {
		t.Errorf("status mismatch: wrong password %d, unknown user %d", wrongPass.Code, unknownUser.Code)
	}
	if wrongPass.Body.String() != unknownUser.Body.String() {
		t.Errorf("body mismatch: %q vs %q", wrongPass.Body.String(), unknownUser.Body.String())
	}
}

func TestRefresh(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	token := registerAndLogin(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh",
		strings.NewReader(`{"token": "`+token+`"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp refreshResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.TokenType)
	}

	// The refreshed token must grant access
	req = authedRequest(http.MethodGet, "/api/v1/projects", "", resp.Token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("refreshed token access status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh",
		strings.NewReader(`{"token": "garbage"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── WS Ticket Tests ───────────────────────────────────────────────

func TestWSTicket_SingleUse(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	token := registerAndLogin(t, router)

	req := authedRequest(http.MethodPost, "/api/v1/auth/ws-ticket", "", token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ws-ticket status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ticket, _ := resp["ticket"].(string) //nolint:errcheck // checked via empty string test below
	if ticket == "" {
		t.Fatal("ticket missing from response")
	}

	entry, ok := srv.tickets.consume(ticket)
	if !ok {
		t.Fatal("first consume failed")
	}
	if entry.username != "tester" {
		t.Errorf("ticket username = %q, want tester", entry.username)
	}

	if _, ok := srv.tickets.consume(ticket); ok {
		t.Error("second consume succeeded, tickets must be single-use")
	}
}

func TestTicketStore_SweepRemovesExpired(t *testing.T) {
	ts := newTicketStore()
	ts.tickets["stale"] = ticketEntry{expiresAt: time.Now().Add(-time.Minute)}
	ts.tickets["fresh"] = ticketEntry{expiresAt: time.Now().Add(time.Minute)}

	ts.sweep()

	if _, ok := ts.tickets["stale"]; ok {
		t.Error("expired ticket survived sweep")
	}
	if _, ok := ts.tickets["fresh"]; !ok {
		t.Error("valid ticket removed by sweep")
	}
}
