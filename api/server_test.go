package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lorenzboss/m321-memory/auth"
	"github.com/lorenzboss/m321-memory/events"
	"github.com/lorenzboss/m321-memory/game/service"
	"github.com/lorenzboss/m321-memory/game/session"
	"github.com/lorenzboss/m321-memory/transport/websocket"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := auth.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	authService := auth.NewService(db, "test-secret", time.Hour)
	gameService := service.NewGameService(session.NewManager(), events.NopPublisher{}, service.DefaultOptions())
	gateway := websocket.NewGateway(gameService, authService)

	return NewServer(authService, gateway)
}

func postJSON(t *testing.T, server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", response["status"])
	}
}

func TestRegisterEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := postJSON(t, server, "/api/auth/register", credentialsRequest{
		Username: "alice",
		Password: "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response authResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.User == nil || response.User.Username != "alice" {
		t.Errorf("Unexpected user in response: %+v", response.User)
	}
	if response.Token == "" {
		t.Error("Expected a token in the response")
	}
}

func TestRegisterEndpoint_Duplicate(t *testing.T) {
	server := newTestServer(t)

	creds := credentialsRequest{Username: "alice", Password: "password123"}
	if w := postJSON(t, server, "/api/auth/register", creds); w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	if w := postJSON(t, server, "/api/auth/register", creds); w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate, got %d", w.Code)
	}
}

func TestRegisterEndpoint_InvalidBody(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	server := newTestServer(t)
	creds := credentialsRequest{Username: "alice", Password: "password123"}
	postJSON(t, server, "/api/auth/register", creds)

	w := postJSON(t, server, "/api/auth/login", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response authResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Token == "" {
		t.Error("Expected a token in the response")
	}
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	server := newTestServer(t)
	postJSON(t, server, "/api/auth/register", credentialsRequest{Username: "alice", Password: "password123"})

	w := postJSON(t, server, "/api/auth/login", credentialsRequest{Username: "alice", Password: "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	server := newTestServer(t)
	w := postJSON(t, server, "/api/auth/register", credentialsRequest{Username: "alice", Password: "password123"})

	var registered authResponse
	if err := json.NewDecoder(w.Body).Decode(&registered); err != nil {
		t.Fatalf("Failed to decode register response: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+registered.Token)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var user auth.User
	if err := json.NewDecoder(rec.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Expected username alice, got %q", user.Username)
	}
}

func TestMeEndpoint_NoToken(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}
