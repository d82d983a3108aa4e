package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/stretchr/testify/mock"

	httpcontext "github.com/dtroode/fintrack-server/internal/api/http/context"
	"github.com/dtroode/fintrack-server/internal/model"
	"github.com/dtroode/fintrack-server/internal/service"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, name, email, password string) (service.Session, error) {
	args := m.Called(ctx, name, email, password)
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (service.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, id string) (model.PublicUser, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PublicUser), args.Error(1)
}

type MockBudgetService struct {
	mock.Mock
}

func (m *MockBudgetService) List(ctx context.Context, userID string) ([]model.Budget, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Budget), args.Error(1)
}

func (m *MockBudgetService) Create(ctx context.Context, userID string, budget model.Budget) (model.Budget, error) {
	args := m.Called(ctx, userID, budget)
	return args.Get(0).(model.Budget), args.Error(1)
}

func (m *MockBudgetService) Get(ctx context.Context, userID, id string) (model.Budget, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Budget), args.Error(1)
}

func (m *MockBudgetService) Update(ctx context.Context, userID, id string, update model.BudgetUpdate) (model.Budget, error) {
	args := m.Called(ctx, userID, id, update)
	return args.Get(0).(model.Budget), args.Error(1)
}

func (m *MockBudgetService) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) List(ctx context.Context, userID string) ([]model.Payment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Payment), args.Error(1)
}

func (m *MockPaymentService) Create(ctx context.Context, userID string, payment model.Payment) (model.Payment, error) {
	args := m.Called(ctx, userID, payment)
	return args.Get(0).(model.Payment), args.Error(1)
}

func (m *MockPaymentService) Get(ctx context.Context, userID, id string) (model.Payment, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Payment), args.Error(1)
}

func (m *MockPaymentService) Update(ctx context.Context, userID, id string, update model.PaymentUpdate) (model.Payment, error) {
	args := m.Called(ctx, userID, id, update)
	return args.Get(0).(model.Payment), args.Error(1)
}

func (m *MockPaymentService) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockPaymentService) BulkDelete(ctx context.Context, userID string, ids []string) (int, error) {
	args := m.Called(ctx, userID, ids)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentService) AddAttachment(ctx context.Context, userID, id string, file service.Attachment) (model.Payment, error) {
	args := m.Called(ctx, userID, id, file)
	return args.Get(0).(model.Payment), args.Error(1)
}

func (m *MockPaymentService) OpenAttachment(ctx context.Context, userID, id, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, userID, id, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

// withIdentity authenticates every request as userID.
func withIdentity(cm *httpcontext.Manager, userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := cm.SetIdentityToContext(r.Context(), model.Identity{ID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
