package recorder

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"broadcast-recorder/internal/platform/metrics"

	"github.com/google/uuid"
)

// Handler exposes recorder HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording.
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

type recordRequest struct {
	Event  uuid.UUID `json:"event"`
	Format string    `json:"format"`
}

type credentialsPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type recordResponse struct {
	Credentials credentialsPayload `json:"credentials"`
	Host        string             `json:"host"`
	Port        int                `json:"port"`
}

// Record handles POST /record.
// Body: { "event": "<uuid>", "format": "ogg" }; format defaults to ogg.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid record body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Event == uuid.Nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp, err := h.svc.Record(r.Context(), Request{
		Episode: req.Event,
		Format:  Format(req.Format),
	})
	if err != nil {
		h.writeError(w, req.Event, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(recordResponse{
		Credentials: credentialsPayload{
			Token:     resp.Credentials.Token,
			ExpiresAt: resp.Credentials.ExpiresAt,
		},
		Host: resp.Host,
		Port: resp.Port,
	})
}

// Ping handles GET /ping for liveness checks.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, event uuid.UUID, err error) {
	var upstream *UpstreamError

	switch {
	case errors.Is(err, ErrUnknownFormat):
		h.log.Info("record rejected unknown format",
			slog.String("event", event.String()),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)

	case errors.Is(err, ErrScheduleNotFound), errors.Is(err, ErrOccurrenceNotFound):
		h.log.Info("record rejected no matching occurrence",
			slog.String("event", event.String()),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusNotFound)

	case errors.Is(err, ErrNoPortsAvailable):
		h.log.Warn("record rejected pool exhausted",
			slog.String("event", event.String()))
		w.WriteHeader(http.StatusServiceUnavailable)

	case errors.As(err, &upstream):
		h.log.Error("record failed upstream",
			slog.String("event", event.String()),
			slog.String("op", upstream.Op),
			slog.String("error", upstream.Err.Error()))
		w.WriteHeader(http.StatusBadGateway)

	default:
		h.log.Error("record failed",
			slog.String("event", event.String()),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}
