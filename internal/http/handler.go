package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ReceiptPoll/internal/flow"
	"ReceiptPoll/internal/models"
	"ReceiptPoll/internal/pin"
	"ReceiptPoll/internal/receipt"
	"ReceiptPoll/internal/store"
)

type ReceiptService interface {
	Resolve(ctx context.Context, orderID string, profile flow.Profile) (*receipt.Receipt, error)
	Open(ctx context.Context, orderID string, profile flow.Profile, opts receipt.Options) (*receipt.Session, error)
}

type WatchStore interface {
	UpsertWatch(ctx context.Context, watch *models.Watch) error
	GetWatch(ctx context.Context, watchID string) (*models.Watch, error)
	ListJournal(ctx context.Context, orderID string) ([]*models.JournalEntry, error)
}

// CatalogCache drops the cached payment list so the next read goes upstream.
type CatalogCache interface {
	Invalidate(ctx context.Context) error
}

type Handler struct {
	Receipts ReceiptService
	// Watches is optional; watch routes answer 503 without it.
	Watches WatchStore
	// Catalog is optional; the refresh route answers 503 without it.
	Catalog      CatalogCache
	Log          *zap.Logger
	PollInterval time.Duration
	// OnSessionStart runs before a stream session fetches for the first time.
	OnSessionStart func(ctx context.Context, orderID string) error

	validate *validator.Validate
}

type flowRequest struct {
	Flow string `json:"flow" validate:"required,oneof=circle event tournament"`
}

type receiptResponse struct {
	Response
	Receipt *receipt.Receipt `json:"receipt"`
}

type watchResponse struct {
	Response
	Watch *models.Watch `json:"watch"`
}

type journalResponse struct {
	Response
	Entries []*models.JournalEntry `json:"entries"`
}

type pinRequest struct {
	Pin        string `json:"pin" validate:"required"`
	ConfirmPin string `json:"confirm_pin" validate:"required"`
}

type pinResponse struct {
	Response
	Hash string `json:"hash"`
}

func NewHandler(receipts ReceiptService, watches WatchStore, log *zap.Logger, pollInterval time.Duration) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Receipts:     receipts,
		Watches:      watches,
		Log:          log,
		PollInterval: pollInterval,
		validate:     validator.New(),
	}
}

func (h *Handler) validation() *validator.Validate {
	if h.validate == nil {
		h.validate = validator.New()
	}
	return h.validate
}

// profile validates the flow name and applies the configured poll interval.
func (h *Handler) profile(name string) (flow.Profile, error) {
	if err := h.validation().Struct(flowRequest{Flow: name}); err != nil {
		return flow.Profile{}, err
	}
	p, err := flow.Lookup(name)
	if err != nil {
		return flow.Profile{}, err
	}
	return p.WithInterval(h.PollInterval), nil
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	const fn = "http.GetReceipt"

	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		writeError(w, r, http.StatusBadRequest, "missing order id")
		return
	}
	profile, err := h.profile(r.URL.Query().Get("flow"))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, validationResponse(err))
		return
	}

	rec, err := h.Receipts.Resolve(r.Context(), orderID, profile)
	if err != nil {
		h.Log.Warn("resolve receipt failed", zap.String("fn", fn), zap.String("order_id", orderID), zap.Error(err))
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, receiptResponse{Response: OK(), Receipt: rec})
}

func (h *Handler) WatchReceipt(w http.ResponseWriter, r *http.Request) {
	const fn = "http.WatchReceipt"

	if h.Watches == nil {
		writeError(w, r, http.StatusServiceUnavailable, "watch store not configured")
		return
	}
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		writeError(w, r, http.StatusBadRequest, "missing order id")
		return
	}

	var req flowRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}
	if err := h.validation().Struct(req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, validationResponse(err))
		return
	}

	watch := &models.Watch{WatchID: uuid.NewString(), OrderID: orderID, Flow: req.Flow}
	if err := h.Watches.UpsertWatch(r.Context(), watch); err != nil {
		h.Log.Error("upsert watch failed", zap.String("fn", fn), zap.String("order_id", orderID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "watch failed")
		return
	}
	writeJSON(w, r, http.StatusCreated, watchResponse{Response: OK(), Watch: watch})
}

func (h *Handler) GetWatch(w http.ResponseWriter, r *http.Request) {
	const fn = "http.GetWatch"

	if h.Watches == nil {
		writeError(w, r, http.StatusServiceUnavailable, "watch store not configured")
		return
	}
	watchID := chi.URLParam(r, "watchId")
	if _, err := uuid.Parse(watchID); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid watch id")
		return
	}

	watch, err := h.Watches.GetWatch(r.Context(), watchID)
	if err != nil {
		if errors.Is(err, store.ErrWatchNotFound) {
			writeError(w, r, http.StatusNotFound, "watch not found")
			return
		}
		h.Log.Error("get watch failed", zap.String("fn", fn), zap.String("watch_id", watchID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "watch failed")
		return
	}
	writeJSON(w, r, http.StatusOK, watchResponse{Response: OK(), Watch: watch})
}

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	const fn = "http.RefreshCatalog"

	if h.Catalog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "catalog cache not configured")
		return
	}
	if err := h.Catalog.Invalidate(r.Context()); err != nil {
		h.Log.Error("catalog invalidate failed", zap.String("fn", fn), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "catalog refresh failed")
		return
	}
	h.Log.Info("payment catalog invalidated", zap.String("fn", fn))
	writeJSON(w, r, http.StatusOK, OK())
}

func (h *Handler) GetJournal(w http.ResponseWriter, r *http.Request) {
	const fn = "http.GetJournal"

	if h.Watches == nil {
		writeError(w, r, http.StatusServiceUnavailable, "watch store not configured")
		return
	}
	orderID := chi.URLParam(r, "orderId")

	entries, err := h.Watches.ListJournal(r.Context(), orderID)
	if err != nil {
		h.Log.Error("list journal failed", zap.String("fn", fn), zap.String("order_id", orderID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "journal failed")
		return
	}
	if entries == nil {
		entries = []*models.JournalEntry{}
	}
	writeJSON(w, r, http.StatusOK, journalResponse{Response: OK(), Entries: entries})
}

func (h *Handler) ConfirmPin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}
	if err := h.validation().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, r, http.StatusBadRequest, ValidationError(verrs))
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid request")
		return
	}

	hash, err := pin.Confirm(req.Pin, req.ConfirmPin)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pinResponse{Response: OK(), Hash: hash})
}
