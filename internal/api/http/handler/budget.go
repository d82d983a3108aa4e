package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

const msgDuplicateBudget = "Duplicate budget for category and period"

// BudgetService is the budget API the handler drives.
type BudgetService interface {
	List(ctx context.Context, userID string) ([]model.Budget, error)
	Create(ctx context.Context, userID string, budget model.Budget) (model.Budget, error)
	Get(ctx context.Context, userID, id string) (model.Budget, error)
	Update(ctx context.Context, userID, id string, update model.BudgetUpdate) (model.Budget, error)
	Delete(ctx context.Context, userID, id string) error
}

// Budget serves /api/budgets.
type Budget struct {
	service        BudgetService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewBudget(svc BudgetService, contextManager model.ContextManager, logger *logger.Logger) *Budget {
	return &Budget{
		service:        svc,
		contextManager: contextManager,
		logger:         logger,
	}
}

func (h *Budget) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	budgets, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err, msgDuplicateBudget)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"budgets": budgets})
}

func (h *Budget) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	var req model.Budget
	if !decode(w, r, &req) {
		return
	}

	budget, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		handleError(w, h.logger, err, msgDuplicateBudget)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"budget": budget})
}

func (h *Budget) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	budget, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.logger, err, msgDuplicateBudget)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"budget": budget})
}

func (h *Budget) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	var req model.BudgetUpdate
	if !decode(w, r, &req) {
		return
	}

	budget, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, h.logger, err, msgDuplicateBudget)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"budget": budget})
}

func (h *Budget) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleError(w, h.logger, err, msgDuplicateBudget)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// caller returns the authenticated user ID or answers 401.
func caller(w http.ResponseWriter, r *http.Request, cm model.ContextManager) (string, bool) {
	identity, ok := cm.GetIdentityFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return "", false
	}
	return identity.ID, true
}
