package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/fintrack-server/internal/model"
	"github.com/dtroode/fintrack-server/internal/repository"
	"github.com/dtroode/fintrack-server/internal/testutil"
)

func validPayment() model.Payment {
	return model.Payment{
		Title:    "Groceries",
		Amount:   decimal.NewFromInt(42),
		Currency: "EUR",
		Type:     model.PaymentTypeExpense,
		Category: model.CategoryGroceries,
		Status:   model.PaymentStatusCompleted,
		Date:     "2025-02-10",
	}
}

func TestPaymentService_Create(t *testing.T) {
	t.Run("defaults tags", func(t *testing.T) {
		store := &MockPaymentStore{}
		store.On("Create", mock.Anything, "u1", mock.MatchedBy(func(p model.Payment) bool {
			return p.Tags != nil && len(p.Tags) == 0
		})).Return(model.Payment{ID: "p1"}, nil)

		svc := NewPayment(store, nil, testutil.MakeNoopLogger())
		got, err := svc.Create(context.Background(), "u1", validPayment())
		require.NoError(t, err)
		assert.Equal(t, "p1", got.ID)
		store.AssertExpectations(t)
	})

	tests := []struct {
		name   string
		mutate func(*model.Payment)
		field  string
	}{
		{name: "empty title", mutate: func(p *model.Payment) { p.Title = " " }, field: "title"},
		{name: "negative amount", mutate: func(p *model.Payment) { p.Amount = decimal.NewFromInt(-1) }, field: "amount"},
		{name: "missing currency", mutate: func(p *model.Payment) { p.Currency = "" }, field: "currency"},
		{name: "unknown type", mutate: func(p *model.Payment) { p.Type = "transfer" }, field: "type"},
		{name: "unknown category", mutate: func(p *model.Payment) { p.Category = "gifts" }, field: "category"},
		{name: "unknown status", mutate: func(p *model.Payment) { p.Status = "done" }, field: "status"},
		{name: "missing date", mutate: func(p *model.Payment) { p.Date = "" }, field: "date"},
		{
			name:   "attachment keys in payload",
			mutate: func(p *model.Payment) { p.Attachments = []string{"payments/u2/p9/x-secret.pdf"} },
			field:  "attachments",
		},
		{
			name: "zero interval",
			mutate: func(p *model.Payment) {
				p.RecurringRule = &model.RecurringRule{Frequency: model.FrequencyMonthly}
			},
			field: "recurringRule.interval",
		},
		{
			name: "unknown frequency",
			mutate: func(p *model.Payment) {
				p.RecurringRule = &model.RecurringRule{Frequency: "hourly", Interval: 1}
			},
			field: "recurringRule.frequency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPayment(&MockPaymentStore{}, nil, testutil.MakeNoopLogger())
			p := validPayment()
			tt.mutate(&p)

			_, err := svc.Create(context.Background(), "u1", p)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, model.ErrValidation)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestPaymentService_Update(t *testing.T) {
	store := &MockPaymentStore{}
	svc := NewPayment(store, nil, testutil.MakeNoopLogger())

	bad := model.PaymentType("refund")
	_, err := svc.Update(context.Background(), "u1", "p1", model.PaymentUpdate{Type: &bad})
	require.ErrorIs(t, err, model.ErrValidation)

	keys := []string{"payments/u2/p9/x-secret.pdf"}
	_, err = svc.Update(context.Background(), "u1", "p1", model.PaymentUpdate{Attachments: &keys})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "attachments")

	status := model.PaymentStatusFailed
	update := model.PaymentUpdate{Status: &status}
	store.On("Update", mock.Anything, "u1", "p1", update).Return(model.Payment{ID: "p1", Status: status}, nil)

	got, err := svc.Update(context.Background(), "u1", "p1", update)
	require.NoError(t, err)
	assert.Equal(t, status, got.Status)
}

func TestPaymentService_Delete(t *testing.T) {
	owned := model.Payment{
		ID:     "p1",
		UserID: "u1",
		Attachments: []string{
			"payments/u1/p1/a-receipt.pdf",
			"payments/u1/p1/b-photo.jpg",
			"https://elsewhere.example/doc.pdf",
		},
	}

	t.Run("removes stored attachments best effort", func(t *testing.T) {
		store := &MockPaymentStore{}
		storage := &MockStorage{}
		store.On("Get", mock.Anything, "u1", "p1").Return(owned, nil)
		store.On("Delete", mock.Anything, "u1", "p1").Return(true, nil)
		storage.On("Delete", mock.Anything, "payments/u1/p1/a-receipt.pdf").Return(errors.New("minio down"))
		storage.On("Delete", mock.Anything, "payments/u1/p1/b-photo.jpg").Return(nil)

		svc := NewPayment(store, storage, testutil.MakeNoopLogger())
		require.NoError(t, svc.Delete(context.Background(), "u1", "p1"))
		store.AssertExpectations(t)
		storage.AssertExpectations(t)
		storage.AssertNumberOfCalls(t, "Delete", 2)
	})

	t.Run("missing", func(t *testing.T) {
		store := &MockPaymentStore{}
		store.On("Get", mock.Anything, "u1", "p1").Return(model.Payment{}, model.ErrNotFound)

		svc := NewPayment(store, &MockStorage{}, testutil.MakeNoopLogger())
		assert.ErrorIs(t, svc.Delete(context.Background(), "u1", "p1"), model.ErrNotFound)
	})

	t.Run("lost race", func(t *testing.T) {
		store := &MockPaymentStore{}
		store.On("Get", mock.Anything, "u1", "p1").Return(owned, nil)
		store.On("Delete", mock.Anything, "u1", "p1").Return(false, nil)

		svc := NewPayment(store, &MockStorage{}, testutil.MakeNoopLogger())
		assert.ErrorIs(t, svc.Delete(context.Background(), "u1", "p1"), model.ErrNotFound)
	})
}

func TestPaymentService_BulkDelete(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		svc := NewPayment(&MockPaymentStore{}, nil, testutil.MakeNoopLogger())
		_, err := svc.BulkDelete(context.Background(), "u1", nil)
		assert.ErrorIs(t, err, model.ErrValidation)
		_, err = svc.BulkDelete(context.Background(), "u1", []string{"p1", ""})
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("deletes and cleans up", func(t *testing.T) {
		store := &MockPaymentStore{}
		storage := &MockStorage{}
		store.On("BulkDelete", mock.Anything, "u1", []string{"p1", "p2"}).Return([]model.Payment{
			{ID: "p1", UserID: "u1", Attachments: []string{"payments/u1/p1/x-a.pdf"}},
		}, nil)
		storage.On("Delete", mock.Anything, "payments/u1/p1/x-a.pdf").Return(nil)

		svc := NewPayment(store, storage, testutil.MakeNoopLogger())
		n, err := svc.BulkDelete(context.Background(), "u1", []string{"p1", "p2"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		storage.AssertExpectations(t)
	})
}

func TestPaymentService_AddAttachment(t *testing.T) {
	file := func() Attachment {
		return Attachment{Name: "../../receipt.pdf", ContentType: "application/pdf", Size: 4, Body: bytes.NewReader([]byte("%PDF"))}
	}
	isKey := mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "payments/u1/p1/") && strings.HasSuffix(key, "-receipt.pdf")
	})

	t.Run("disabled", func(t *testing.T) {
		svc := NewPayment(&MockPaymentStore{}, nil, testutil.MakeNoopLogger())
		_, err := svc.AddAttachment(context.Background(), "u1", "p1", file())
		assert.ErrorIs(t, err, model.ErrStorageDisabled)
	})

	t.Run("uploaded and attached", func(t *testing.T) {
		store := &MockPaymentStore{}
		storage := &MockStorage{}
		store.On("Get", mock.Anything, "u1", "p1").Return(model.Payment{ID: "p1", UserID: "u1"}, nil)
		storage.On("Upload", mock.Anything, isKey, mock.Anything, int64(4), "application/pdf").Return(nil)
		store.On("Attach", mock.Anything, "u1", "p1", isKey).Return(model.Payment{ID: "p1", Attachments: []string{"k"}}, nil)

		svc := NewPayment(store, storage, testutil.MakeNoopLogger())
		got, err := svc.AddAttachment(context.Background(), "u1", "p1", file())
		require.NoError(t, err)
		assert.Equal(t, []string{"k"}, got.Attachments)
		store.AssertExpectations(t)
		storage.AssertExpectations(t)
	})

	t.Run("foreign payment uploads nothing", func(t *testing.T) {
		store := &MockPaymentStore{}
		storage := &MockStorage{}
		store.On("Get", mock.Anything, "u1", "p1").Return(model.Payment{}, model.ErrNotFound)

		svc := NewPayment(store, storage, testutil.MakeNoopLogger())
		_, err := svc.AddAttachment(context.Background(), "u1", "p1", file())
		assert.ErrorIs(t, err, model.ErrNotFound)
		storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("attach failure removes the upload", func(t *testing.T) {
		store := &MockPaymentStore{}
		storage := &MockStorage{}
		store.On("Get", mock.Anything, "u1", "p1").Return(model.Payment{ID: "p1", UserID: "u1"}, nil)
		storage.On("Upload", mock.Anything, isKey, mock.Anything, int64(4), "application/pdf").Return(nil)
		store.On("Attach", mock.Anything, "u1", "p1", isKey).Return(model.Payment{}, model.ErrNotFound)
		storage.On("Delete", mock.Anything, isKey).Return(nil)

		svc := NewPayment(store, storage, testutil.MakeNoopLogger())
		_, err := svc.AddAttachment(context.Background(), "u1", "p1", file())
		assert.ErrorIs(t, err, model.ErrNotFound)
		storage.AssertExpectations(t)
	})
}

func TestPaymentService_OpenAttachment(t *testing.T) {
	store := &MockPaymentStore{}
	storage := &MockStorage{}
	store.On("Get", mock.Anything, "u1", "p1").Return(model.Payment{
		ID: "p1", UserID: "u1", Attachments: []string{"payments/u1/p1/x-a.pdf"},
	}, nil)
	storage.On("Download", mock.Anything, "payments/u1/p1/x-a.pdf").Return(io.NopCloser(strings.NewReader("body")), nil)

	svc := NewPayment(store, storage, testutil.MakeNoopLogger())

	rc, err := svc.OpenAttachment(context.Background(), "u1", "p1", "payments/u1/p1/x-a.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "body", string(body))

	_, err = svc.OpenAttachment(context.Background(), "u1", "p1", "payments/u2/p9/x-secret.pdf")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPaymentService_ForeignAttachmentKey(t *testing.T) {
	ctx := context.Background()
	kv, _ := testutil.MakeKV(t)
	store := repository.NewPayments(kv, &testutil.Publisher{}, testutil.MakeNoopLogger())
	storage := &MockStorage{}
	svc := NewPayment(store, storage, testutil.MakeNoopLogger())

	victim, err := svc.Create(ctx, "victim", validPayment())
	require.NoError(t, err)
	secret := "payments/victim/" + victim.ID + "/uuid-secret.pdf"
	_, err = store.Attach(ctx, "victim", victim.ID, secret)
	require.NoError(t, err)

	own, err := svc.Create(ctx, "mallory", validPayment())
	require.NoError(t, err)

	keys := []string{secret}
	_, err = svc.Update(ctx, "mallory", own.ID, model.PaymentUpdate{Attachments: &keys})
	require.ErrorIs(t, err, model.ErrValidation)
	got, err := store.Get(ctx, "mallory", own.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Attachments)

	// A foreign key recorded on the payment is still never served.
	_, err = store.Update(ctx, "mallory", own.ID, model.PaymentUpdate{Attachments: &keys})
	require.NoError(t, err)
	_, err = svc.OpenAttachment(ctx, "mallory", own.ID, secret)
	require.ErrorIs(t, err, model.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "mallory", own.ID))
	storage.AssertNotCalled(t, "Download", mock.Anything, mock.Anything)
	storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	storage.On("Download", mock.Anything, secret).Return(io.NopCloser(strings.NewReader("pdf")), nil)
	rc, err := svc.OpenAttachment(ctx, "victim", victim.ID, secret)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(body))
}

func TestAttachmentKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "receipt.pdf", want: "-receipt.pdf"},
		{name: "../../etc/passwd", want: "-passwd"},
		{name: `C:\Users\me\scan.png`, want: "-scan.png"},
		{name: "", want: "-file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := attachmentKey("u1", "p1", tt.name)
			assert.True(t, strings.HasPrefix(key, "payments/u1/p1/"))
			assert.True(t, strings.HasSuffix(key, tt.want), key)
			assert.NotContains(t, strings.TrimPrefix(key, "payments/u1/p1/"), "/")
		})
	}
}
