package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/middleware"
	"github.com/banklinkhq/banklink/internal/response"
)

type LinkService interface {
	CreateLinkToken(ctx context.Context, uid string) (dto.LinkTokenResult, error)
	ExchangePublicToken(ctx context.Context, uid, publicToken string, inst *dto.InstitutionMetadata) (dto.ExchangeResult, error)
}

type linkHandlers struct {
	ResponseHandler response.ResponseHandler
	LinkSvc         LinkService
}

func NewLinkHandlers(deps *Deps) *linkHandlers {
	return &linkHandlers{
		ResponseHandler: deps.ResponseHandler,
		LinkSvc:         deps.LinkSvc,
	}
}

func (h *linkHandlers) LinkRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/token", h.CreateLinkToken)
	r.Post("/exchange", h.ExchangePublicToken)
	return r
}

func (h *linkHandlers) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	result, err := h.LinkSvc.CreateLinkToken(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}

// ExchangePublicToken is the client-driven exchange path, used when the Link
// frontend hands the public token back directly instead of via webhook.
func (h *linkHandlers) ExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PublicToken string                   `json:"publicToken"`
		Institution *dto.InstitutionMetadata `json:"institution,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("invalid request body"))
		return
	}
	if body.PublicToken == "" {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("publicToken is required"))
		return
	}

	uid := middleware.UID(r.Context())
	result, err := h.LinkSvc.ExchangePublicToken(r.Context(), uid, body.PublicToken, body.Institution)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}
