package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/response"
	"github.com/banklinkhq/banklink/internal/services"
	"github.com/banklinkhq/banklink/pkg/logger"
)

// --- fakes ---

type fakeWebhookSvc struct {
	result services.WebhookResult
	err    error

	gotBody   string
	gotHeader string
}

func (f *fakeWebhookSvc) Process(ctx context.Context, body []byte, signatureHeader string) (services.WebhookResult, error) {
	f.gotBody = string(body)
	f.gotHeader = signatureHeader
	return f.result, f.err
}

func testWebhookHandlers(svc *fakeWebhookSvc) *webhookHandlers {
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))
	deps := &Deps{
		Log:             log,
		ResponseHandler: response.New(log),
		WebhookSvc:      svc,
	}
	return NewWebhookHandlers(deps)
}

func postWebhook(t *testing.T, h *webhookHandlers, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/plaid", strings.NewReader(body))
	req.Header.Set("Plaid-Verification", signature)
	req = req.WithContext(logger.ToContext(req.Context(), log))

	rec := httptest.NewRecorder()
	h.PlaidWebhook(rec, req)
	return rec
}

// --- tests ---

func TestPlaidWebhookAcknowledgesOutcomes(t *testing.T) {
	outcomes := []services.WebhookOutcome{
		services.WebhookApplied,
		services.WebhookSkipped,
		services.WebhookIgnored,
		services.WebhookFailed,
	}
	for _, outcome := range outcomes {
		svc := &fakeWebhookSvc{result: services.WebhookResult{Outcome: outcome}}
		rec := postWebhook(t, testWebhookHandlers(svc), `{"webhook_type":"LINK"}`, "jwt")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", outcome, rec.Code)
		}
	}
}

func TestPlaidWebhookPassesHeaderAndBody(t *testing.T) {
	svc := &fakeWebhookSvc{result: services.WebhookResult{Outcome: services.WebhookApplied}}
	postWebhook(t, testWebhookHandlers(svc), `{"webhook_type":"LINK"}`, "jwt-header")

	if svc.gotHeader != "jwt-header" {
		t.Fatalf("verification header not forwarded, got %q", svc.gotHeader)
	}
	if svc.gotBody != `{"webhook_type":"LINK"}` {
		t.Fatalf("body not forwarded raw, got %q", svc.gotBody)
	}
}

func TestPlaidWebhookBadSignatureIs401(t *testing.T) {
	svc := &fakeWebhookSvc{err: errs.NewSignatureError("rejected")}
	rec := postWebhook(t, testWebhookHandlers(svc), `{}`, "bad")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPlaidWebhookReceiptFailureIs500(t *testing.T) {
	svc := &fakeWebhookSvc{err: errs.NewDatabaseError("webhook_receipt.create", "down")}
	rec := postWebhook(t, testWebhookHandlers(svc), `{}`, "jwt")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the sender retries, got %d", rec.Code)
	}
}
