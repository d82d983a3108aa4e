package repository

import (
	"context"
	"slices"
	"time"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

const (
	paymentEntity      = "payment"
	paymentIndexPrefix = "payments:user:"
)

var _ model.PaymentStore = (*Payments)(nil)

// Payments stores payments with an ownership index and no claims.
type Payments struct {
	store *Store[model.Payment]
}

// NewPayments creates the payment store.
func NewPayments(kv model.KV, pub model.Publisher, log *logger.Logger, opts ...Option) *Payments {
	keys := func(p model.Payment) (string, string) { return p.ID, p.UserID }

	schema := Schema[model.Payment]{
		Entity:      paymentEntity,
		IndexPrefix: paymentIndexPrefix,
		Owner:       func(p model.Payment) string { return p.UserID },
		Init: func(p *model.Payment, id, owner string, now time.Time) {
			p.ID, p.UserID = id, owner
			p.CreatedAt, p.UpdatedAt = now, now
		},
		Carry: func(p *model.Payment, prev model.Payment, now time.Time) {
			p.ID, p.UserID, p.CreatedAt = prev.ID, prev.UserID, prev.CreatedAt
			p.UpdatedAt = now
		},
		Compare: comparePayments,
		Created: func(p model.Payment) any {
			return map[string]any{
				"id":       p.ID,
				"userId":   p.UserID,
				"amount":   p.Amount,
				"type":     p.Type,
				"category": p.Category,
				"date":     p.Date,
			}
		},
		Updated: ref[model.Payment](keys),
		Deleted: ref[model.Payment](keys),
		BulkDeleted: func(owner string, ids []string) any {
			return map[string]any{"userId": owner, "ids": ids}
		},
	}

	return &Payments{store: NewStore(kv, pub, log, schema, opts...)}
}

// comparePayments orders payments newest first. Payments with unparsable
// dates go last; ties fall back to creation time, newest first.
func comparePayments(a, b model.Payment) int {
	ta, oka := a.When()
	tb, okb := b.When()
	switch {
	case oka && !okb:
		return -1
	case !oka && okb:
		return 1
	case oka && okb && !ta.Equal(tb):
		return tb.Compare(ta)
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

func (r *Payments) List(ctx context.Context, userID string) ([]model.Payment, error) {
	return r.store.List(ctx, userID)
}

func (r *Payments) Create(ctx context.Context, userID string, payment model.Payment) (model.Payment, error) {
	return r.store.Create(ctx, userID, payment)
}

func (r *Payments) Get(ctx context.Context, userID, id string) (model.Payment, error) {
	return r.store.Get(ctx, userID, id)
}

func (r *Payments) Update(ctx context.Context, userID, id string, update model.PaymentUpdate) (model.Payment, error) {
	return r.store.Update(ctx, userID, id, func(p *model.Payment) {
		*p = p.Apply(update)
	})
}

func (r *Payments) Delete(ctx context.Context, userID, id string) (bool, error) {
	return r.store.Delete(ctx, userID, id)
}

func (r *Payments) BulkDelete(ctx context.Context, userID string, ids []string) ([]model.Payment, error) {
	return r.store.BulkDelete(ctx, userID, ids)
}

// Attach appends an attachment key to the payment.
func (r *Payments) Attach(ctx context.Context, userID, id, key string) (model.Payment, error) {
	return r.store.Update(ctx, userID, id, func(p *model.Payment) {
		p.Attachments = append(slices.Clone(p.Attachments), key)
	})
}

func (r *Payments) Repair(ctx context.Context, userID string) (int, error) {
	return r.store.Repair(ctx, userID)
}
