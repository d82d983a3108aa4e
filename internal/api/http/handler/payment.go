package handler

import (
	"context"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
	"github.com/dtroode/fintrack-server/internal/service"
)

// Payments have no uniqueness constraint; a conflict here means the
// record kept changing under the update.
const msgPaymentConflict = "Payment was modified concurrently"

// multipartMemory is how much of an upload is buffered in memory.
const multipartMemory = 8 << 20

// PaymentService is the payment API the handler drives.
type PaymentService interface {
	List(ctx context.Context, userID string) ([]model.Payment, error)
	Create(ctx context.Context, userID string, payment model.Payment) (model.Payment, error)
	Get(ctx context.Context, userID, id string) (model.Payment, error)
	Update(ctx context.Context, userID, id string, update model.PaymentUpdate) (model.Payment, error)
	Delete(ctx context.Context, userID, id string) error
	BulkDelete(ctx context.Context, userID string, ids []string) (int, error)
	AddAttachment(ctx context.Context, userID, id string, file service.Attachment) (model.Payment, error)
	OpenAttachment(ctx context.Context, userID, id, key string) (io.ReadCloser, error)
}

// Payment serves /api/payments.
type Payment struct {
	service        PaymentService
	contextManager model.ContextManager
	logger         *logger.Logger
	maxUpload      int64
}

// NewPayment creates the payment handler. maxUpload bounds attachment bodies.
func NewPayment(svc PaymentService, contextManager model.ContextManager, logger *logger.Logger, maxUpload int64) *Payment {
	return &Payment{
		service:        svc,
		contextManager: contextManager,
		logger:         logger,
		maxUpload:      maxUpload,
	}
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *Payment) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	payments, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err, msgPaymentConflict)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Payment) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	var req model.Payment
	if !decode(w, r, &req) {
		return
	}

	payment, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		handleError(w, h.logger, err, msgPaymentConflict)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"payment": payment})
}

func (h *Payment) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	payment, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.logger, err, msgPaymentConflict)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (h *Payment) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	var req model.PaymentUpdate
	if !decode(w, r, &req) {
		return
	}

	payment, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, h.logger, err, msgPaymentConflict)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (h *Payment) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleError(w, h.logger, err, msgPaymentConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Payment) BulkDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	var req bulkDeleteRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := h.service.BulkDelete(r.Context(), userID, req.IDs); err != nil {
		handleError(w, h.logger, err, msgPaymentConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Payment) AddAttachment(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		WriteError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	defer file.Close()

	payment, err := h.service.AddAttachment(r.Context(), userID, chi.URLParam(r, "id"), service.Attachment{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		handleError(w, h.logger, err, msgPaymentConflict)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"payment": payment})
}

func (h *Payment) GetAttachment(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r, h.contextManager)
	if !ok {
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		WriteError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}

	body, err := h.service.OpenAttachment(r.Context(), userID, chi.URLParam(r, "id"), key)
	if err != nil {
		handleError(w, h.logger, err, msgPaymentConflict)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("Payment handler: attachment stream interrupted", "key", key, "error", err.Error())
	}
}
