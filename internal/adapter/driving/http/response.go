package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/ghnotify/internal/adapter/driven/statusboard"
	"github.com/ericfisherdev/ghnotify/internal/application"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusResponse combines the published status with the orchestrator state.
type StatusResponse struct {
	State       string `json:"state"`
	Tooltip     string `json:"tooltip"`
	Paused      bool   `json:"paused"`
	Polling     bool   `json:"polling"`
	InFlight    bool   `json:"in_flight"`
	Tracked     int    `json:"tracked"`
	LastCycle   string `json:"last_cycle,omitempty"`
	SnoozeUntil string `json:"snooze_until,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// SnoozeRequest is the JSON body for the snooze endpoint.
type SnoozeRequest struct {
	Minutes int `json:"minutes"`
}

// SnoozeResponse reports when an activated snooze ends.
type SnoozeResponse struct {
	SnoozeUntil string `json:"snooze_until"`
}

// TokenRequest is the JSON body for the token endpoints. Token may be empty
// on the test endpoint to probe the stored token.
type TokenRequest struct {
	Token string `json:"token"`
}

// ActionResponse acknowledges a control action.
type ActionResponse struct {
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// toStatusResponse merges the board snapshot with the orchestrator snapshot.
func toStatusResponse(board statusboard.Snapshot, poll application.Snapshot) StatusResponse {
	return StatusResponse{
		State:       string(board.State),
		Tooltip:     board.Tooltip,
		Paused:      poll.Paused,
		Polling:     poll.Polling,
		InFlight:    poll.InFlight,
		Tracked:     poll.Tracked,
		LastCycle:   formatTime(poll.LastCycle),
		SnoozeUntil: formatTime(poll.SnoozeUntil),
		UpdatedAt:   formatTime(board.UpdatedAt),
	}
}
