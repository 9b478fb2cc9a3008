package http

import (
	"net/http"
	"strings"
	"testing"
)

func TestUpdateBlocksReportsFieldErrors(t *testing.T) {
	env := startTestServer(t, nil)
	owner := env.signup(t)

	resp := env.do(t, http.MethodPatch, "/api/v1/scheduleblocks", owner, []map[string]any{
		{"id": "a", "day": 1, "start_time": 9, "end_time": 10},
		{"id": "b", "start_time": 9, "end_time": 10},
	})
	expectStatus(t, resp, http.StatusBadRequest)

	body := decode[ErrorResponse](t, resp)
	if !strings.Contains(body.Error, "day is a required field") {
		t.Fatalf("expected field error for day, got %q", body.Error)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/scheduleblocks", owner, map[string]any{"day": 1, "start_time": 9, "end_time": 10})
	expectStatus(t, resp, http.StatusBadRequest)
	if body := decode[ErrorResponse](t, resp); !strings.Contains(body.Error, "table_id is a required field") {
		t.Fatalf("expected field error for table_id, got %q", body.Error)
	}
}
