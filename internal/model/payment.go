package model

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStore defines persistence operations for payments.
type PaymentStore interface {
	List(ctx context.Context, userID string) ([]Payment, error)
	Create(ctx context.Context, userID string, payment Payment) (Payment, error)
	Get(ctx context.Context, userID, id string) (Payment, error)
	Update(ctx context.Context, userID, id string, update PaymentUpdate) (Payment, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	BulkDelete(ctx context.Context, userID string, ids []string) ([]Payment, error)
	Attach(ctx context.Context, userID, id, key string) (Payment, error)
	Repair(ctx context.Context, userID string) (int, error)
}

// PaymentType distinguishes money in from money out.
type PaymentType string

const (
	PaymentTypeIncome  PaymentType = "income"
	PaymentTypeExpense PaymentType = "expense"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	return t == PaymentTypeIncome || t == PaymentTypeExpense
}

// PaymentStatus enumerates payment lifecycle states.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// Frequency is the unit of a recurring rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringRule describes how a payment repeats.
type RecurringRule struct {
	Frequency Frequency `json:"frequency"`
	Interval  int       `json:"interval"`
	EndDate   string    `json:"endDate,omitempty"`
}

// Payment is a single income or expense entry.
type Payment struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Title         string          `json:"title"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Type          PaymentType     `json:"type"`
	Category      Category        `json:"category"`
	Tags          []string        `json:"tags"`
	Status        PaymentStatus   `json:"status"`
	Method        string          `json:"method,omitempty"`
	Merchant      string          `json:"merchant,omitempty"`
	Date          string          `json:"date"`
	DueDate       string          `json:"dueDate,omitempty"`
	RecurringRule *RecurringRule  `json:"recurringRule,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Attachments   []string        `json:"attachments,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// PaymentUpdate carries the fields of a partial payment update. Nil means unchanged.
type PaymentUpdate struct {
	Title         *string          `json:"title,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Type          *PaymentType     `json:"type,omitempty"`
	Category      *Category        `json:"category,omitempty"`
	Tags          *[]string        `json:"tags,omitempty"`
	Status        *PaymentStatus   `json:"status,omitempty"`
	Method        *string          `json:"method,omitempty"`
	Merchant      *string          `json:"merchant,omitempty"`
	Date          *string          `json:"date,omitempty"`
	DueDate       *string          `json:"dueDate,omitempty"`
	RecurringRule *RecurringRule   `json:"recurringRule,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Attachments   *[]string        `json:"attachments,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
}

// Apply merges u into p.
func (p Payment) Apply(u PaymentUpdate) Payment {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Amount != nil {
		p.Amount = *u.Amount
	}
	if u.Currency != nil {
		p.Currency = *u.Currency
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Tags != nil {
		p.Tags = *u.Tags
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Method != nil {
		p.Method = *u.Method
	}
	if u.Merchant != nil {
		p.Merchant = *u.Merchant
	}
	if u.Date != nil {
		p.Date = *u.Date
	}
	if u.DueDate != nil {
		p.DueDate = *u.DueDate
	}
	if u.RecurringRule != nil {
		rule := *u.RecurringRule
		p.RecurringRule = &rule
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	if u.Attachments != nil {
		p.Attachments = *u.Attachments
	}
	if u.Metadata != nil {
		p.Metadata = u.Metadata
	}
	return p
}

var paymentDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// When parses the payment date. It reports false for dates in an unknown format.
func (p Payment) When() (time.Time, bool) {
	for _, layout := range paymentDateLayouts {
		if t, err := time.Parse(layout, p.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
