package service

import (
	"context"
	"fmt"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

type Budget struct {
	budgetStore model.BudgetStore
	logger      *logger.Logger
}

func NewBudget(budgetStore model.BudgetStore, logger *logger.Logger) *Budget {
	return &Budget{
		budgetStore: budgetStore,
		logger:      logger,
	}
}

func (s *Budget) List(ctx context.Context, userID string) ([]model.Budget, error) {
	budgets, err := s.budgetStore.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	return budgets, nil
}

func (s *Budget) Create(ctx context.Context, userID string, budget model.Budget) (model.Budget, error) {
	if err := validateBudget(budget); err != nil {
		return model.Budget{}, err
	}

	created, err := s.budgetStore.Create(ctx, userID, budget)
	if err != nil {
		s.logger.Warn("Budget service: failed to create budget",
			"user_id", userID,
			"category", budget.Category,
			"period", budget.Period,
			"error", err.Error())
		return model.Budget{}, fmt.Errorf("failed to create budget: %w", err)
	}

	s.logger.Debug("Budget service: budget created", "user_id", userID, "budget_id", created.ID)
	return created, nil
}

func (s *Budget) Get(ctx context.Context, userID, id string) (model.Budget, error) {
	budget, err := s.budgetStore.Get(ctx, userID, id)
	if err != nil {
		return model.Budget{}, fmt.Errorf("failed to get budget: %w", err)
	}
	return budget, nil
}

func (s *Budget) Update(ctx context.Context, userID, id string, update model.BudgetUpdate) (model.Budget, error) {
	if err := validateBudgetUpdate(update); err != nil {
		return model.Budget{}, err
	}

	updated, err := s.budgetStore.Update(ctx, userID, id, update)
	if err != nil {
		return model.Budget{}, fmt.Errorf("failed to update budget: %w", err)
	}
	return updated, nil
}

// Delete removes a budget. A missing budget yields model.ErrNotFound.
func (s *Budget) Delete(ctx context.Context, userID, id string) error {
	ok, err := s.budgetStore.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	if !ok {
		return model.ErrNotFound
	}
	return nil
}
