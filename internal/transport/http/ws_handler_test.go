package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/timetable-server/internal/config"
	"github.com/vovakirdan/timetable-server/internal/core"
	"github.com/vovakirdan/timetable-server/internal/proto"
)

func dialTimetable(ctx context.Context, t *testing.T, env *testEnv, timetableID string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(env.ts.URL, "http", "ws", 1) + "/api/v1/ws/" + timetableID
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", timetableID, err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func readText(ctx context.Context, t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("expected text frame, got %v", typ)
	}
	return string(data)
}

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t, nil)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketBroadcastToAll(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialTimetable(ctx, t, env, "t1")
	connB := dialTimetable(ctx, t, env, "t1")
	waitFor(t, func() bool { return env.hub.Len() == 2 })

	if err := connA.Write(ctx, websocket.MessageText, []byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := readText(ctx, t, connB); got != "t1: ping" {
		t.Fatalf("B expected %q, got %q", "t1: ping", got)
	}
	// The sender is a recipient too.
	if got := readText(ctx, t, connA); got != "t1: ping" {
		t.Fatalf("A expected %q, got %q", "t1: ping", got)
	}

	resp := env.do(t, stdhttp.MethodGet, "/api/v1/stats", "", nil)
	expectStatus(t, resp, stdhttp.StatusOK)
	stats := decode[core.Stats](t, resp)
	if stats.Connections != 2 || stats.Timetables != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestWebSocketGlobalScopeCrossesTimetables(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialTimetable(ctx, t, env, "t1")
	connB := dialTimetable(ctx, t, env, "t2")
	waitFor(t, func() bool { return env.hub.Len() == 2 })

	if err := connA.Write(ctx, websocket.MessageText, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readText(ctx, t, connB); got != "t1: hello" {
		t.Fatalf("expected %q, got %q", "t1: hello", got)
	}
}

func TestWebSocketTimetableScope(t *testing.T) {
	env := startTestServer(t, func(cfg *config.Config) {
		cfg.BroadcastScope = "timetable"
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialTimetable(ctx, t, env, "t1")
	connB := dialTimetable(ctx, t, env, "t2")
	waitFor(t, func() bool { return env.hub.Len() == 2 })

	if err := connA.Write(ctx, websocket.MessageText, []byte("only t1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readText(ctx, t, connA); got != "t1: only t1" {
		t.Fatalf("expected %q, got %q", "t1: only t1", got)
	}

	shortCtx, shortCancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer shortCancel()
	if _, _, err := connB.Read(shortCtx); err == nil {
		t.Fatalf("t2 connection must not receive t1 broadcasts")
	}
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialTimetable(ctx, t, env, "t1")
	connB := dialTimetable(ctx, t, env, "t1")
	waitFor(t, func() bool { return env.hub.Len() == 2 })

	if err := connA.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitFor(t, func() bool { return env.hub.Len() == 1 })

	if err := connB.Write(ctx, websocket.MessageText, []byte("still here")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readText(ctx, t, connB); got != "t1: still here" {
		t.Fatalf("expected %q, got %q", "t1: still here", got)
	}
}

func TestWebSocketRejectsBinaryFrames(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTimetable(ctx, t, env, "t1")
	waitFor(t, func() bool { return env.hub.Len() == 1 })

	if err := conn.Write(ctx, websocket.MessageBinary, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, err := conn.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusUnsupportedData {
		t.Fatalf("expected StatusUnsupportedData, got %v (%v)", status, err)
	}
	waitFor(t, func() bool { return env.hub.Len() == 0 })
}

func TestWebSocketRateLimit(t *testing.T) {
	env := startTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTimetable(ctx, t, env, "t1")
	waitFor(t, func() bool { return env.hub.Len() == 1 })

	_ = conn.Write(ctx, websocket.MessageText, []byte("one"))
	if got := readText(ctx, t, conn); got != "t1: one" {
		t.Fatalf("expected %q, got %q", "t1: one", got)
	}
	_ = conn.Write(ctx, websocket.MessageText, []byte("two"))

	_, _, err := conn.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusPolicyViolation {
		t.Fatalf("expected StatusPolicyViolation, got %v (%v)", status, err)
	}
}

func TestWebSocketShutdownClosesClients(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTimetable(ctx, t, env, "t1")
	waitFor(t, func() bool { return env.hub.Len() == 1 })

	env.hub.Shutdown()

	_, _, err := conn.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusGoingAway {
		t.Fatalf("expected StatusGoingAway, got %v (%v)", status, err)
	}
}

func TestRESTMutationNotifiesSubscribers(t *testing.T) {
	env := startTestServer(t, nil)
	token := env.signup(t)

	resp := env.do(t, stdhttp.MethodPost, "/api/v1/timetables", token, map[string]string{"title": "week"})
	expectStatus(t, resp, stdhttp.StatusCreated)
	tt := decode[proto.Timetable](t, resp)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTimetable(ctx, t, env, tt.ID)
	waitFor(t, func() bool { return env.hub.Len() == 1 })

	resp = env.do(t, stdhttp.MethodPost, "/api/v1/scheduleblocks", token, map[string]any{
		"table_id":   tt.ID,
		"day":        1,
		"start_time": 9,
		"end_time":   10,
		"label":      "standup",
	})
	expectStatus(t, resp, stdhttp.StatusCreated)

	got := readText(ctx, t, conn)
	prefix := tt.ID + ": "
	if !strings.HasPrefix(got, prefix) {
		t.Fatalf("expected prefix %q, got %q", prefix, got)
	}
	var event proto.ChangeEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(got, prefix)), &event); err != nil {
		t.Fatalf("unmarshal notification: %v", err)
	}
	if event.Event != proto.EventScheduleBlockCreated || event.TimetableID != tt.ID {
		t.Fatalf("unexpected notification: %+v", event)
	}
}
