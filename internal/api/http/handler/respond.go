package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
	"github.com/dtroode/fintrack-server/internal/service"
)

const (
	msgInvalidInput       = "Invalid input"
	msgInvalidCredentials = "Invalid credentials"
	msgNotFound           = "Not found"
	msgUnauthorized       = "Unauthorized"
	msgInternal           = "Internal Server Error"
	msgStorageDisabled    = "Attachments are disabled"
	msgBusy               = "Resource busy, retry"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the {"error": msg} body every service answers failures with.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorBody{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, msgInvalidInput)
		return false
	}
	return true
}

// handleError maps service errors onto the HTTP contract. conflict is the
// message used for uniqueness violations of the calling service. Contention
// is never reported as a uniqueness violation.
func handleError(w http.ResponseWriter, log *logger.Logger, err error, conflict string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: msgInvalidInput, Details: verr.Fields})
	case errors.Is(err, model.ErrValidation):
		WriteError(w, http.StatusBadRequest, msgInvalidInput)
	case errors.Is(err, model.ErrConflict):
		WriteError(w, http.StatusBadRequest, conflict)
	case errors.Is(err, model.ErrContention):
		WriteError(w, http.StatusConflict, msgBusy)
	case errors.Is(err, model.ErrInvalidCredentials):
		WriteError(w, http.StatusBadRequest, msgInvalidCredentials)
	case errors.Is(err, model.ErrNotFound):
		WriteError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, model.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, model.ErrStorageDisabled):
		WriteError(w, http.StatusServiceUnavailable, msgStorageDisabled)
	default:
		log.Error("HTTP handler: request failed", "error", err.Error())
		WriteError(w, http.StatusInternalServerError, msgInternal)
	}
}
