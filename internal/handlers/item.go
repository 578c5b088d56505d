package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/middleware"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/internal/response"
	"github.com/banklinkhq/banklink/internal/store"
)

type ItemService interface {
	ListItems(ctx context.Context, uid string) ([]*models.Item, error)
	GetItem(ctx context.Context, uid, itemID string) (*models.Item, error)
	ListAccounts(ctx context.Context, uid, itemID string) ([]*models.Account, error)
	ListTransactions(ctx context.Context, uid string, filter store.TransactionFilter) ([]*models.Transaction, error)
	DeleteItem(ctx context.Context, uid, itemID, reason string) error
}

type SyncService interface {
	SyncUser(ctx context.Context, uid string, itemID *string) (dto.SyncResult, error)
}

type itemHandlers struct {
	ResponseHandler response.ResponseHandler
	ItemSvc         ItemService
	SyncSvc         SyncService
}

func NewItemHandlers(deps *Deps) *itemHandlers {
	return &itemHandlers{
		ResponseHandler: deps.ResponseHandler,
		ItemSvc:         deps.ItemSvc,
		SyncSvc:         deps.SyncSvc,
	}
}

func (h *itemHandlers) ItemRoutes() chi.Router {
	r := chi.NewRouter()
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Get("/{itemId}", h.GetItem)
		r.Delete("/{itemId}", h.DeleteItem)
	})
	r.Get("/accounts", h.ListAccounts)
	r.Get("/transactions", h.ListTransactions)
	r.Post("/transactions/sync", h.SyncTransactions)
	return r
}

func (h *itemHandlers) ListItems(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	items, err := h.ItemSvc.ListItems(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, items)
}

func (h *itemHandlers) GetItem(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	itemID := chi.URLParam(r, "itemId")

	item, err := h.ItemSvc.GetItem(r.Context(), uid, itemID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, item)
}

func (h *itemHandlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	itemID := chi.URLParam(r, "itemId")
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "user requested"
	}

	if err := h.ItemSvc.DeleteItem(r.Context(), uid, itemID, reason); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *itemHandlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	itemID := r.URL.Query().Get("itemId")

	accounts, err := h.ItemSvc.ListAccounts(r.Context(), uid, itemID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, accounts)
}

func (h *itemHandlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	q := r.URL.Query()
	filter := store.TransactionFilter{
		AccountID: q.Get("accountId"),
		ItemID:    q.Get("itemId"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
	if limit := q.Get("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}

	txs, err := h.ItemSvc.ListTransactions(r.Context(), uid, filter)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, txs)
}

func (h *itemHandlers) SyncTransactions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemID *string `json:"itemId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) { // allow empty body
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	result, err := h.SyncSvc.SyncUser(r.Context(), uid, body.ItemID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}
