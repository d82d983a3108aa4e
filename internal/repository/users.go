package repository

import (
	"context"
	"strings"
	"time"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

const userEntity = "user"

var _ model.UserStore = (*Users)(nil)

// Users stores accounts. The only index is the email claim.
type Users struct {
	store *Store[model.User]
}

// UserEmailKey returns the email claim key. Emails are matched case-insensitively.
func UserEmailKey(email string) string {
	return "user:email:" + strings.ToLower(email)
}

// NewUsers creates the user store.
func NewUsers(kv model.KV, pub model.Publisher, log *logger.Logger, opts ...Option) *Users {
	schema := Schema[model.User]{
		Entity: userEntity,
		Owner:  func(u model.User) string { return u.ID },
		Init: func(u *model.User, id, _ string, now time.Time) {
			u.ID = id
			u.CreatedAt, u.UpdatedAt = now, now
		},
		Carry: func(u *model.User, prev model.User, now time.Time) {
			u.ID, u.CreatedAt = prev.ID, prev.CreatedAt
			u.UpdatedAt = now
		},
		Claims: func(u model.User) []string {
			return []string{UserEmailKey(u.Email)}
		},
		Created: func(u model.User) any {
			return map[string]any{
				"id":        u.ID,
				"name":      u.Name,
				"email":     u.Email,
				"createdAt": u.CreatedAt,
			}
		},
	}

	return &Users{store: NewStore(kv, pub, log, schema, opts...)}
}

func (r *Users) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.store.GetByClaim(ctx, UserEmailKey(email))
}

func (r *Users) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.store.Load(ctx, id)
}

func (r *Users) Create(ctx context.Context, user model.User) (model.User, error) {
	return r.store.Create(ctx, "", user)
}
