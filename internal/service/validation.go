package service

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dtroode/fintrack-server/internal/model"
)

const minPasswordLength = 6

// ValidationError lists the rejected fields of a payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("invalid input: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return model.ErrValidation
}

type violations map[string]string

func (v violations) add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

func (v violations) positive(field string, d decimal.Decimal) {
	if !d.IsPositive() {
		v.add(field, "must be positive")
	}
}

func (v violations) required(field, s string) {
	if strings.TrimSpace(s) == "" {
		v.add(field, "is required")
	}
}

func validateRegistration(name, email, password string) error {
	v := violations{}
	v.required("name", name)
	if _, err := mail.ParseAddress(email); err != nil {
		v.add("email", "must be a valid email address")
	}
	if len(password) < minPasswordLength {
		v.add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	return v.err()
}

func validateBudget(b model.Budget) error {
	v := violations{}
	if !b.Category.Valid() {
		v.add("category", "unknown category")
	}
	v.positive("amount", b.Amount)
	if !b.Period.Valid() {
		v.add("period", "must be monthly or yearly")
	}
	v.required("currency", b.Currency)
	return v.err()
}

func validateBudgetUpdate(u model.BudgetUpdate) error {
	v := violations{}
	if u.Category != nil && !u.Category.Valid() {
		v.add("category", "unknown category")
	}
	if u.Amount != nil {
		v.positive("amount", *u.Amount)
	}
	if u.Period != nil && !u.Period.Valid() {
		v.add("period", "must be monthly or yearly")
	}
	if u.Currency != nil {
		v.required("currency", *u.Currency)
	}
	return v.err()
}

// msgAttachmentsManaged rejects attachment keys in payment payloads. Keys are
// only recorded by uploads.
const msgAttachmentsManaged = "set by uploading to the attachments endpoint"

func validatePayment(p model.Payment) error {
	v := violations{}
	v.required("title", p.Title)
	v.positive("amount", p.Amount)
	v.required("currency", p.Currency)
	if !p.Type.Valid() {
		v.add("type", "must be income or expense")
	}
	if !p.Category.Valid() {
		v.add("category", "unknown category")
	}
	if !p.Status.Valid() {
		v.add("status", "unknown status")
	}
	v.required("date", p.Date)
	if len(p.Attachments) > 0 {
		v.add("attachments", msgAttachmentsManaged)
	}
	if p.RecurringRule != nil {
		validateRecurringRule(v, *p.RecurringRule)
	}
	return v.err()
}

func validatePaymentUpdate(u model.PaymentUpdate) error {
	v := violations{}
	if u.Title != nil {
		v.required("title", *u.Title)
	}
	if u.Amount != nil {
		v.positive("amount", *u.Amount)
	}
	if u.Currency != nil {
		v.required("currency", *u.Currency)
	}
	if u.Type != nil && !u.Type.Valid() {
		v.add("type", "must be income or expense")
	}
	if u.Category != nil && !u.Category.Valid() {
		v.add("category", "unknown category")
	}
	if u.Status != nil && !u.Status.Valid() {
		v.add("status", "unknown status")
	}
	if u.Attachments != nil {
		v.add("attachments", msgAttachmentsManaged)
	}
	if u.RecurringRule != nil {
		validateRecurringRule(v, *u.RecurringRule)
	}
	return v.err()
}

func validateRecurringRule(v violations, r model.RecurringRule) {
	if !r.Frequency.Valid() {
		v.add("recurringRule.frequency", "unknown frequency")
	}
	if r.Interval < 1 {
		v.add("recurringRule.interval", "must be a positive integer")
	}
}

func validateIDs(ids []string) error {
	v := violations{}
	if len(ids) == 0 {
		v.add("ids", "must contain at least one id")
	}
	for _, id := range ids {
		if id == "" {
			v.add("ids", "must not contain empty ids")
		}
	}
	return v.err()
}
