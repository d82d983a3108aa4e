package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports backing store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// Health answers /healthz. A nil pinger always reports ok.
type Health struct {
	pinger Pinger
}

func NewHealth(pinger Pinger) *Health {
	return &Health{pinger: pinger}
}

func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// NotFound is the JSON fallback for unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, msgNotFound)
}

// MethodNotAllowed is the JSON answer for a known route with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
