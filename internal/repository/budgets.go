package repository

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

const (
	budgetEntity      = "budget"
	budgetIndexPrefix = "budgets:user:"
)

var _ model.BudgetStore = (*Budgets)(nil)

// Budgets stores budgets with an ownership index and one uniqueness claim
// per (user, category, period).
type Budgets struct {
	store *Store[model.Budget]
}

// BudgetClaimKey returns the uniqueness claim key of a budget.
func BudgetClaimKey(userID string, category model.Category, period model.Period) string {
	return fmt.Sprintf("budget:unique:%s:%s:%s", userID, category, period)
}

// NewBudgets creates the budget store.
func NewBudgets(kv model.KV, pub model.Publisher, log *logger.Logger, opts ...Option) *Budgets {
	schema := Schema[model.Budget]{
		Entity:      budgetEntity,
		IndexPrefix: budgetIndexPrefix,
		Owner:       func(b model.Budget) string { return b.UserID },
		Init: func(b *model.Budget, id, owner string, now time.Time) {
			b.ID, b.UserID = id, owner
			b.CreatedAt, b.UpdatedAt = now, now
		},
		Carry: func(b *model.Budget, prev model.Budget, now time.Time) {
			b.ID, b.UserID, b.CreatedAt = prev.ID, prev.UserID, prev.CreatedAt
			b.UpdatedAt = now
		},
		Claims: func(b model.Budget) []string {
			return []string{BudgetClaimKey(b.UserID, b.Category, b.Period)}
		},
		Compare: func(a, b model.Budget) int {
			return cmp.Compare(a.Category, b.Category)
		},
		Created: func(b model.Budget) any {
			return map[string]any{
				"id":       b.ID,
				"userId":   b.UserID,
				"category": b.Category,
				"period":   b.Period,
				"amount":   b.Amount,
			}
		},
		Updated: ref[model.Budget](func(b model.Budget) (string, string) { return b.ID, b.UserID }),
		Deleted: ref[model.Budget](func(b model.Budget) (string, string) { return b.ID, b.UserID }),
	}

	return &Budgets{store: NewStore(kv, pub, log, schema, opts...)}
}

func (r *Budgets) List(ctx context.Context, userID string) ([]model.Budget, error) {
	return r.store.List(ctx, userID)
}

func (r *Budgets) Create(ctx context.Context, userID string, budget model.Budget) (model.Budget, error) {
	return r.store.Create(ctx, userID, budget)
}

func (r *Budgets) Get(ctx context.Context, userID, id string) (model.Budget, error) {
	return r.store.Get(ctx, userID, id)
}

func (r *Budgets) Update(ctx context.Context, userID, id string, update model.BudgetUpdate) (model.Budget, error) {
	return r.store.Update(ctx, userID, id, func(b *model.Budget) {
		*b = b.Apply(update)
	})
}

func (r *Budgets) Delete(ctx context.Context, userID, id string) (bool, error) {
	return r.store.Delete(ctx, userID, id)
}

func (r *Budgets) Repair(ctx context.Context, userID string) (int, error) {
	return r.store.Repair(ctx, userID)
}

// ref builds the {id, userId} payload used by update and delete events.
func ref[T any](keys func(T) (string, string)) func(T) any {
	return func(rec T) any {
		id, userID := keys(rec)
		return map[string]any{"id": id, "userId": userID}
	}
}
