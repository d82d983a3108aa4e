package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
	"github.com/dtroode/fintrack-server/internal/service"
)

const msgEmailInUse = "Email in use"

// AuthService is the account API the handler drives.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Me(ctx context.Context, id string) (model.PublicUser, error)
}

// Auth serves /api/auth.
type Auth struct {
	service        AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuth(svc AuthService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		service:        svc,
		contextManager: contextManager,
		logger:         logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleError(w, h.logger, err, msgEmailInUse)
		return
	}

	WriteJSON(w, http.StatusCreated, session)
}

func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, h.logger, err, msgEmailInUse)
		return
	}

	WriteJSON(w, http.StatusOK, session)
}

func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	user, err := h.service.Me(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		handleError(w, h.logger, err, msgEmailInUse)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}
