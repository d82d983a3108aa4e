package service

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/fintrack-server/internal/model"
)

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

// MockTokenManager mocks the TokenManager interface
type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) Issue(identity model.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) Parse(token string) (model.Identity, error) {
	args := m.Called(token)
	return args.Get(0).(model.Identity), args.Error(1)
}

// MockBudgetStore mocks the BudgetStore interface
type MockBudgetStore struct {
	mock.Mock
}

func (m *MockBudgetStore) List(ctx context.Context, userID string) ([]model.Budget, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Budget), args.Error(1)
}

func (m *MockBudgetStore) Create(ctx context.Context, userID string, budget model.Budget) (model.Budget, error) {
	args := m.Called(ctx, userID, budget)
	return args.Get(0).(model.Budget), args.Error(1)
}

func (m *MockBudgetStore) Get(ctx context.Context, userID, id string) (model.Budget, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Budget), args.Error(1)
}

func (m *MockBudgetStore) Update(ctx context.Context, userID, id string, update model.BudgetUpdate) (model.Budget, error) {
	args := m.Called(ctx, userID, id, update)
	return args.Get(0).(model.Budget), args.Error(1)
}

func (m *MockBudgetStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBudgetStore) Repair(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockPaymentStore mocks the PaymentStore interface
type MockPaymentStore struct {
	mock.Mock
}

func (m *MockPaymentStore) List(ctx context.Context, userID string) ([]model.Payment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Payment), args.Error(1)
}

func (m *MockPaymentStore) Create(ctx context.Context, userID string, payment model.Payment) (model.Payment, error) {
	args := m.Called(ctx, userID, payment)
	return args.Get(0).(model.Payment), args.Error(1)
}

func (m *MockPaymentStore) Get(ctx context.Context, userID, id string) (model.Payment, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Payment), args.Error(1)
}

func (m *MockPaymentStore) Update(ctx context.Context, userID, id string, update model.PaymentUpdate) (model.Payment, error) {
	args := m.Called(ctx, userID, id, update)
	return args.Get(0).(model.Payment), args.Error(1)
}

func (m *MockPaymentStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentStore) BulkDelete(ctx context.Context, userID string, ids []string) ([]model.Payment, error) {
	args := m.Called(ctx, userID, ids)
	return args.Get(0).([]model.Payment), args.Error(1)
}

func (m *MockPaymentStore) Attach(ctx context.Context, userID, id, key string) (model.Payment, error) {
	args := m.Called(ctx, userID, id, key)
	return args.Get(0).(model.Payment), args.Error(1)
}

func (m *MockPaymentStore) Repair(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockStorage mocks the ObjectStorage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.Error(0)
}

func (m *MockStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
