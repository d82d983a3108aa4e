package model

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetStore defines persistence operations for budgets.
type BudgetStore interface {
	List(ctx context.Context, userID string) ([]Budget, error)
	Create(ctx context.Context, userID string, budget Budget) (Budget, error)
	Get(ctx context.Context, userID, id string) (Budget, error)
	Update(ctx context.Context, userID, id string, update BudgetUpdate) (Budget, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	Repair(ctx context.Context, userID string) (int, error)
}

// Period is the budgeting window.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p == PeriodMonthly || p == PeriodYearly
}

// Budget is a spending limit for one category and period.
// At most one live budget exists per (user, category, period).
type Budget struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Category  Category        `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Period    Period          `json:"period"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// BudgetUpdate carries the fields of a partial budget update. Nil means unchanged.
type BudgetUpdate struct {
	Category *Category        `json:"category,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Period   *Period          `json:"period,omitempty"`
	Currency *string          `json:"currency,omitempty"`
}

// Apply merges u into b.
func (b Budget) Apply(u BudgetUpdate) Budget {
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Amount != nil {
		b.Amount = *u.Amount
	}
	if u.Period != nil {
		b.Period = *u.Period
	}
	if u.Currency != nil {
		b.Currency = *u.Currency
	}
	return b
}
