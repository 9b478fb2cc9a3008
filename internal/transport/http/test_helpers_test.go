package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/auth"
	"github.com/vovakirdan/timetable-server/internal/auth/provider"
	"github.com/vovakirdan/timetable-server/internal/config"
	"github.com/vovakirdan/timetable-server/internal/core"
	"github.com/vovakirdan/timetable-server/internal/service/timetables"
	"github.com/vovakirdan/timetable-server/internal/store/sqlite"
)

type testEnv struct {
	hub     *core.Hub
	auth    *auth.Service
	store   *sqlite.SQLiteStore
	handler stdhttp.Handler
	ts      *httptest.Server
}

// createTestStore creates an in-memory SQLite store with migrations applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createTestAuthService creates an auth service for testing. idp may be nil.
func createTestAuthService(t *testing.T, st *sqlite.SQLiteStore, jwtSecret string, idp auth.IdentityProvider) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig, idp)
}

// startTestServer wires a full server on top of an in-memory store.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	disabledLogger := zerolog.Nop()

	scope, err := core.ParseScope(cfg.BroadcastScope)
	if err != nil {
		t.Fatalf("parse scope: %v", err)
	}
	hub := core.NewHub(scope, &disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	st := createTestStore(t)
	var idp auth.IdentityProvider
	if cfg.Provider.ClientID != "" {
		idp = provider.New(cfg.Provider, nil)
	}
	authService := createTestAuthService(t, st, "test-secret", idp)

	var notifier timetables.Notifier
	if cfg.NotifyChanges {
		notifier = hub
	}
	ttService := timetables.New(st, notifier, &disabledLogger)

	server := NewServer(hub, authService, ttService, st, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})

	return &testEnv{hub: hub, auth: authService, store: st, handler: server.Handler, ts: ts}
}

// signup creates a password account and returns its bearer token.
func (e *testEnv) signup(t *testing.T) string {
	t.Helper()

	token, err := e.auth.Signup(context.Background(), faker.Email(), "password123")
	if err != nil {
		t.Fatalf("failed to sign up user: %v", err)
	}
	return token
}

// do sends a JSON request through the router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()

	if resp.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
