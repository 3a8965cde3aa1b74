package recorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/record", h.Record)
	r.Get("/ping", h.Ping)
	return r
}

func newTestHandler(t *testing.T, schedules ScheduleSource, run StreamRunner, poolPorts ...int) *Handler {
	t.Helper()
	svc, _ := newTestService(t, schedules, run, poolPorts...)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewHandler(svc, log, nil)
}

func postRecord(t *testing.T, r *chi.Mux, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/record", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Record(t *testing.T) {
	episodeID := uuid.New()
	schedules := &fakeSchedules{schedules: []Schedule{testSchedule(episodeID)}}
	h := newTestHandler(t, schedules, &fakeRunner{})
	r := newTestRouter(h)

	rec := postRecord(t, r, map[string]any{"event": episodeID.String(), "format": "ogg"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var resp recordResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Credentials.Token) != 32 {
		t.Errorf("token length = %d, want 32", len(resp.Credentials.Token))
	}
	if resp.Host != "recorder.example" || resp.Port != 41000 {
		t.Errorf("endpoint = %s:%d", resp.Host, resp.Port)
	}
}

func TestHandler_Record_bad_request(t *testing.T) {
	episodeID := uuid.New()
	schedules := &fakeSchedules{schedules: []Schedule{testSchedule(episodeID)}}
	h := newTestHandler(t, schedules, &fakeRunner{})
	r := newTestRouter(h)

	t.Run("invalid_body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/record", bytes.NewReader([]byte("not json")))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing_event", func(t *testing.T) {
		rec := postRecord(t, r, map[string]any{"format": "ogg"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown_format", func(t *testing.T) {
		rec := postRecord(t, r, map[string]any{"event": episodeID.String(), "format": "flac"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandler_Record_not_found(t *testing.T) {
	h := newTestHandler(t, &fakeSchedules{}, &fakeRunner{})
	r := newTestRouter(h)

	rec := postRecord(t, r, map[string]any{"event": uuid.New().String()})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_Record_pool_exhausted(t *testing.T) {
	episodeID := uuid.New()
	schedules := &fakeSchedules{schedules: []Schedule{testSchedule(episodeID)}}
	h := newTestHandler(t, schedules, &fakeRunner{}, 41000)
	r := newTestRouter(h)

	if rec := postRecord(t, r, map[string]any{"event": episodeID.String()}); rec.Code != http.StatusCreated {
		t.Fatalf("setup: expected 201, got %d", rec.Code)
	}

	rec := postRecord(t, r, map[string]any{"event": episodeID.String()})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when the pool is exhausted, got %d", rec.Code)
	}
}

func TestHandler_Record_upstream_failure(t *testing.T) {
	schedules := &fakeSchedules{err: errors.New("connection refused")}
	h := newTestHandler(t, schedules, &fakeRunner{})
	r := newTestRouter(h)

	rec := postRecord(t, r, map[string]any{"event": uuid.New().String()})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestHandler_Record_runner_failure(t *testing.T) {
	episodeID := uuid.New()
	schedules := &fakeSchedules{schedules: []Schedule{testSchedule(episodeID)}}
	h := newTestHandler(t, schedules, &fakeRunner{runErr: errors.New("spawn failed")})
	r := newTestRouter(h)

	rec := postRecord(t, r, map[string]any{"event": episodeID.String()})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandler_Ping(t *testing.T) {
	h := newTestHandler(t, &fakeSchedules{}, &fakeRunner{})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
