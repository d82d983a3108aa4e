package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

// Attachment is a stored file of a payment.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Payment struct {
	paymentStore model.PaymentStore
	storage      model.ObjectStorage
	logger       *logger.Logger
}

// NewPayment creates the payment service. storage may be nil, which
// disables attachments.
func NewPayment(paymentStore model.PaymentStore, storage model.ObjectStorage, logger *logger.Logger) *Payment {
	return &Payment{
		paymentStore: paymentStore,
		storage:      storage,
		logger:       logger,
	}
}

func (s *Payment) List(ctx context.Context, userID string) ([]model.Payment, error) {
	payments, err := s.paymentStore.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *Payment) Create(ctx context.Context, userID string, payment model.Payment) (model.Payment, error) {
	if err := validatePayment(payment); err != nil {
		return model.Payment{}, err
	}
	if payment.Tags == nil {
		payment.Tags = []string{}
	}

	created, err := s.paymentStore.Create(ctx, userID, payment)
	if err != nil {
		s.logger.Error("Payment service: failed to create payment",
			"user_id", userID,
			"error", err.Error())
		return model.Payment{}, fmt.Errorf("failed to create payment: %w", err)
	}
	return created, nil
}

func (s *Payment) Get(ctx context.Context, userID, id string) (model.Payment, error) {
	payment, err := s.paymentStore.Get(ctx, userID, id)
	if err != nil {
		return model.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

func (s *Payment) Update(ctx context.Context, userID, id string, update model.PaymentUpdate) (model.Payment, error) {
	if err := validatePaymentUpdate(update); err != nil {
		return model.Payment{}, err
	}

	updated, err := s.paymentStore.Update(ctx, userID, id, update)
	if err != nil {
		return model.Payment{}, fmt.Errorf("failed to update payment: %w", err)
	}
	return updated, nil
}

// Delete removes a payment and, best effort, its stored attachments.
// A missing payment yields model.ErrNotFound.
func (s *Payment) Delete(ctx context.Context, userID, id string) error {
	payment, err := s.paymentStore.Get(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}

	ok, err := s.paymentStore.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if !ok {
		return model.ErrNotFound
	}

	s.removeObjects(ctx, payment)
	return nil
}

// BulkDelete removes the caller's payments among ids and returns how many
// were removed.
func (s *Payment) BulkDelete(ctx context.Context, userID string, ids []string) (int, error) {
	if err := validateIDs(ids); err != nil {
		return 0, err
	}

	deleted, err := s.paymentStore.BulkDelete(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk delete payments: %w", err)
	}

	for _, p := range deleted {
		s.removeObjects(ctx, p)
	}

	s.logger.Info("Payment service: bulk delete done",
		"user_id", userID,
		"requested", len(ids),
		"deleted", len(deleted))
	return len(deleted), nil
}

// AddAttachment uploads a file and records its key on the payment.
func (s *Payment) AddAttachment(ctx context.Context, userID, id string, file Attachment) (model.Payment, error) {
	if s.storage == nil {
		return model.Payment{}, model.ErrStorageDisabled
	}

	if _, err := s.paymentStore.Get(ctx, userID, id); err != nil {
		return model.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}

	key := attachmentKey(userID, id, file.Name)
	if err := s.storage.Upload(ctx, key, file.Body, file.Size, file.ContentType); err != nil {
		s.logger.Error("Payment service: failed to upload attachment",
			"payment_id", id,
			"key", key,
			"error", err.Error())
		return model.Payment{}, fmt.Errorf("failed to upload attachment: %w", err)
	}

	updated, err := s.paymentStore.Attach(ctx, userID, id, key)
	if err != nil {
		if derr := s.storage.Delete(ctx, key); derr != nil {
			s.logger.Warn("Payment service: failed to remove orphaned attachment",
				"key", key,
				"error", derr.Error())
		}
		return model.Payment{}, fmt.Errorf("failed to attach file: %w", err)
	}

	return updated, nil
}

// OpenAttachment streams a file listed on the caller's payment. Only keys
// under the payment's own object prefix are served.
func (s *Payment) OpenAttachment(ctx context.Context, userID, id, key string) (io.ReadCloser, error) {
	if s.storage == nil {
		return nil, model.ErrStorageDisabled
	}

	payment, err := s.paymentStore.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if !strings.HasPrefix(key, attachmentPrefix(userID, id)) || !slices.Contains(payment.Attachments, key) {
		return nil, model.ErrNotFound
	}

	rc, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}
	return rc, nil
}

// removeObjects deletes stored attachments of p. Failures are only logged.
func (s *Payment) removeObjects(ctx context.Context, p model.Payment) {
	if s.storage == nil {
		return
	}
	prefix := attachmentPrefix(p.UserID, p.ID)
	for _, key := range p.Attachments {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("Payment service: failed to delete attachment",
				"payment_id", p.ID,
				"key", key,
				"error", err.Error())
		}
	}
}

func attachmentPrefix(userID, paymentID string) string {
	return fmt.Sprintf("payments/%s/%s/", userID, paymentID)
}

func attachmentKey(userID, paymentID, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return attachmentPrefix(userID, paymentID) + uuid.NewString() + "-" + name
}
