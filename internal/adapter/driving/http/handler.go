// Package httphandler serves the local control API of the agent.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/ghnotify/internal/adapter/driven/statusboard"
	"github.com/ericfisherdev/ghnotify/internal/application"
	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Poller is the orchestrator surface driven by the API.
type Poller interface {
	Snapshot(ctx context.Context) application.Snapshot
	PollNow(ctx context.Context) error
	StartPolling(ctx context.Context) error
	StopPolling()
	RestartPolling(ctx context.Context) error
	Pause()
	Resume(ctx context.Context) error
	HandleSystemResume(ctx context.Context) error
	ActivateSnooze(ctx context.Context, minutes int) (time.Time, error)
	CancelSnooze(ctx context.Context) error
}

// SettingsManager reads and replaces the settings document.
type SettingsManager interface {
	Get(ctx context.Context) (model.Settings, error)
	Update(ctx context.Context, settings model.Settings) error
}

// TokenManager stores and probes the GitHub token.
type TokenManager interface {
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Test(ctx context.Context, token string) (model.ConnectionResult, error)
}

// StatusSource exposes the published status.
type StatusSource interface {
	Snapshot() statusboard.Snapshot
}

// Handler is the HTTP driving adapter that serves the control API.
type Handler struct {
	poller   Poller
	settings SettingsManager
	tokens   TokenManager
	status   StatusSource
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	poller Poller,
	settings SettingsManager,
	tokens TokenManager,
	status StatusSource,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		poller:   poller,
		settings: settings,
		tokens:   tokens,
		status:   status,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. gatherer backs GET /metrics and may
// be nil.
func NewServeMux(h *Handler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("POST /api/v1/poll", h.PollNow)
	mux.HandleFunc("POST /api/v1/polling/start", h.StartPolling)
	mux.HandleFunc("POST /api/v1/polling/stop", h.StopPolling)
	mux.HandleFunc("POST /api/v1/polling/restart", h.RestartPolling)
	mux.HandleFunc("POST /api/v1/polling/pause", h.Pause)
	mux.HandleFunc("POST /api/v1/polling/resume", h.Resume)
	mux.HandleFunc("POST /api/v1/snooze", h.ActivateSnooze)
	mux.HandleFunc("DELETE /api/v1/snooze", h.CancelSnooze)
	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/settings", h.UpdateSettings)
	mux.HandleFunc("PUT /api/v1/token", h.SaveToken)
	mux.HandleFunc("DELETE /api/v1/token", h.ClearToken)
	mux.HandleFunc("POST /api/v1/token/test", h.TestToken)
	mux.HandleFunc("POST /api/v1/system/resume", h.SystemResume)

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Status returns the published state and orchestrator snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(h.status.Snapshot(), h.poller.Snapshot(r.Context())))
}

// PollNow runs one cycle and returns the resulting status.
func (h *Handler) PollNow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.poller.Snapshot(ctx).Paused {
		writeError(w, http.StatusConflict, "polling is paused")
		return
	}

	if err := h.poller.PollNow(ctx); err != nil {
		h.logger.Warn("manual poll failed", "error", err)
		writeError(w, pollErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(h.status.Snapshot(), h.poller.Snapshot(ctx)))
}

// StartPolling schedules polling and runs an immediate cycle.
func (h *Handler) StartPolling(w http.ResponseWriter, r *http.Request) {
	h.respondAction(w, h.poller.StartPolling(r.Context()))
}

// StopPolling cancels the polling timer.
func (h *Handler) StopPolling(w http.ResponseWriter, _ *http.Request) {
	h.poller.StopPolling()
	writeJSON(w, http.StatusOK, ActionResponse{Status: "ok"})
}

// RestartPolling prunes the seen-set and restarts polling.
func (h *Handler) RestartPolling(w http.ResponseWriter, r *http.Request) {
	h.respondAction(w, h.poller.RestartPolling(r.Context()))
}

// Pause stops polling until resumed.
func (h *Handler) Pause(w http.ResponseWriter, _ *http.Request) {
	h.poller.Pause()
	writeJSON(w, http.StatusOK, ActionResponse{Status: "ok"})
}

// Resume restarts polling after a pause.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.respondAction(w, h.poller.Resume(r.Context()))
}

// SystemResume is called by the host after waking from sleep.
func (h *Handler) SystemResume(w http.ResponseWriter, r *http.Request) {
	h.respondAction(w, h.poller.HandleSystemResume(r.Context()))
}

// ActivateSnooze suppresses delivery for the requested number of minutes.
func (h *Handler) ActivateSnooze(w http.ResponseWriter, r *http.Request) {
	var req SnoozeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Minutes <= 0 {
		writeError(w, http.StatusBadRequest, "minutes must be a positive number")
		return
	}

	until, err := h.poller.ActivateSnooze(r.Context(), req.Minutes)
	if err != nil {
		h.logger.Error("failed to activate snooze", "minutes", req.Minutes, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, SnoozeResponse{SnoozeUntil: formatTime(until)})
}

// CancelSnooze ends an active snooze.
func (h *Handler) CancelSnooze(w http.ResponseWriter, r *http.Request) {
	if err := h.poller.CancelSnooze(r.Context()); err != nil {
		h.logger.Error("failed to cancel snooze", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns the current settings document.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSettings applies the request body on top of the current settings and
// saves the result. Invalid documents are rejected whole.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !decodeBody(w, r, &s) {
		return
	}

	err = h.settings.Update(r.Context(), s)
	switch {
	case err == nil:
	case errors.Is(err, application.ErrInvalidSettings):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, application.ErrNotApplied):
		h.logger.Warn("settings saved but polling restart failed", "error", err)
	default:
		h.logger.Error("failed to save settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	saved, getErr := h.settings.Get(r.Context())
	if getErr != nil {
		h.logger.Error("failed to reload settings", "error", getErr)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// SaveToken stores a new GitHub token and restarts polling with it.
func (h *Handler) SaveToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.tokens.Save(r.Context(), req.Token)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ActionResponse{Status: "saved"})
	case errors.Is(err, application.ErrEmptyToken):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrNotApplied):
		writeJSON(w, http.StatusOK, ActionResponse{Status: "saved", Warning: err.Error()})
	default:
		h.logger.Error("failed to save token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ClearToken removes the stored token.
func (h *Handler) ClearToken(w http.ResponseWriter, r *http.Request) {
	err := h.tokens.Clear(r.Context())
	if err != nil && !errors.Is(err, application.ErrNotApplied) {
		h.logger.Error("failed to delete token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestToken probes the given token, or the stored one when none is given.
func (h *Handler) TestToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	result, err := h.tokens.Test(r.Context(), req.Token)
	if err != nil {
		h.logger.Error("failed to test token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// respondAction writes the outcome of a control action. Cycle failures are
// reported as a warning; the action itself took effect.
func (h *Handler) respondAction(w http.ResponseWriter, err error) {
	if err != nil {
		h.logger.Warn("control action finished with poll error", "error", err)
		writeJSON(w, http.StatusOK, ActionResponse{Status: "ok", Warning: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Status: "ok"})
}

// decodeBody decodes a bounded JSON body into v, rejecting unknown fields.
// On failure it writes a 400 and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pollErrorStatus maps a cycle failure to a response status.
func pollErrorStatus(err error) int {
	switch {
	case errors.Is(err, driven.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, driven.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
