package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/banklinkhq/banklink/internal/response"
	"github.com/banklinkhq/banklink/internal/services"
)

// maxWebhookBody caps notification payloads; the aggregator's are small.
const maxWebhookBody = 1 << 20

type WebhookService interface {
	Process(ctx context.Context, body []byte, signatureHeader string) (services.WebhookResult, error)
}

type webhookHandlers struct {
	ResponseHandler response.ResponseHandler
	WebhookSvc      WebhookService
}

func NewWebhookHandlers(deps *Deps) *webhookHandlers {
	return &webhookHandlers{
		ResponseHandler: deps.ResponseHandler,
		WebhookSvc:      deps.WebhookSvc,
	}
}

// PlaidWebhook receives aggregator notifications. Processing outcomes are
// always acknowledged with 200; only signature failures, malformed bodies and
// receipt persistence failures refuse the delivery, and for those the mapped
// status tells the sender whether to retry.
func (h *webhookHandlers) PlaidWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.ResponseHandler.WriteError(w, r, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}

	result, err := h.WebhookSvc.Process(r.Context(), body, r.Header.Get("Plaid-Verification"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"outcome": string(result.Outcome),
	})
}
