package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/middleware"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/internal/response"
)

type BillingService interface {
	CreateCheckout(ctx context.Context, uid string, plan models.Plan) (dto.CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
	GetSubscription(ctx context.Context, uid string) (*models.Subscription, error)
}

type billingHandlers struct {
	ResponseHandler response.ResponseHandler
	BillingSvc      BillingService
}

func NewBillingHandlers(deps *Deps) *billingHandlers {
	return &billingHandlers{
		ResponseHandler: deps.ResponseHandler,
		BillingSvc:      deps.BillingSvc,
	}
}

func (h *billingHandlers) BillingRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout", h.CreateCheckout)
	r.Get("/subscription", h.GetSubscription)
	return r
}

func (h *billingHandlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plan models.Plan `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("invalid request body"))
		return
	}

	uid := middleware.UID(r.Context())
	result, err := h.BillingSvc.CreateCheckout(r.Context(), uid, body.Plan)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}

func (h *billingHandlers) GetSubscription(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	sub, err := h.BillingSvc.GetSubscription(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, sub)
}

func (h *billingHandlers) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.ResponseHandler.WriteError(w, r, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}

	if err := h.BillingSvc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}
