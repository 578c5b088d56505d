package services

import (
	"context"
	"fmt"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/logger"
)

// --- Dependencies ---

type webhookVerifier interface {
	VerifyWebhook(ctx context.Context, body []byte, signatureHeader string) error
}

type linkSessionWHStore interface {
	GetByLinkToken(ctx context.Context, linkToken string) (*models.LinkSession, error)
	MarkActive(ctx context.Context, id, linkSessionID string) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, detail string) error
}

type receiptWHStore interface {
	Create(ctx context.Context, receipt *models.WebhookReceipt) error
	MarkProcessed(ctx context.Context, id, processingError string) error
	RecordRetry(ctx context.Context, id, processingError string) error
	ListUnprocessed(ctx context.Context, maxRetries, limit int) ([]*models.WebhookReceipt, error)
}

type itemWHStore interface {
	Get(ctx context.Context, itemID string) (*models.Item, error)
	SetStatus(ctx context.Context, itemID string, status models.ItemStatus, lastError string) error
}

type itemAdder interface {
	AddItemFromLink(ctx context.Context, session *models.LinkSession, publicToken string, inst *dto.InstitutionMetadata) (AddOutcome, string, error)
}

// --- Results ---

// WebhookOutcome states what a dispatched notification did. Every outcome,
// including failed, is acknowledged to the sender; only signature and receipt
// persistence failures refuse the delivery.
type WebhookOutcome string

const (
	WebhookApplied WebhookOutcome = "applied" // state changed
	WebhookSkipped WebhookOutcome = "skipped" // recognized, deliberately not applied (duplicate, plan limit)
	WebhookIgnored WebhookOutcome = "ignored" // nothing to apply it to (unknown token, unknown code)
	WebhookFailed  WebhookOutcome = "failed"  // processing error, receipt left for replay
)

type WebhookResult struct {
	Outcome   WebhookOutcome
	Detail    string
	ReceiptID string
}

type webhookService struct {
	verifier webhookVerifier
	sessions linkSessionWHStore
	receipts receiptWHStore
	items    itemWHStore
	links    itemAdder
	sync     initialSyncTrigger
}

func NewWebhookService(verifier webhookVerifier, sessions linkSessionWHStore, receipts receiptWHStore, items itemWHStore, links itemAdder, sync initialSyncTrigger) *webhookService {
	return &webhookService{
		verifier: verifier,
		sessions: sessions,
		receipts: receipts,
		items:    items,
		links:    links,
		sync:     sync,
	}
}

// Process handles one inbound aggregator notification end to end: verify the
// signature, parse, persist a receipt, then dispatch. The receipt is written
// before dispatch so a crash mid-processing leaves a row the worker replays.
//
// Errors returned here refuse the delivery (signature, malformed body,
// receipt write). Dispatch failures do NOT propagate: the notification is
// acknowledged and the receipt stays unprocessed for the worker.
func (s *webhookService) Process(ctx context.Context, body []byte, signatureHeader string) (WebhookResult, error) {
	log := logger.FromContext(ctx)

	if err := s.verifier.VerifyWebhook(ctx, body, signatureHeader); err != nil {
		return WebhookResult{}, errs.NewSignatureError("webhook signature rejected: " + err.Error())
	}

	env, event, err := dto.ParseWebhook(body)
	if err != nil {
		return WebhookResult{}, errs.NewValidationError("malformed webhook body: " + err.Error())
	}

	receipt := &models.WebhookReceipt{
		WebhookType: env.WebhookType,
		WebhookCode: env.WebhookCode,
		ItemID:      env.ItemID,
		LinkToken:   env.LinkToken,
		Payload:     body,
	}
	if err := s.receipts.Create(ctx, receipt); err != nil {
		return WebhookResult{}, err
	}

	result := s.dispatchAndSettle(ctx, receipt.ID, event)
	log.Info("webhook processed",
		"webhook_type", env.WebhookType,
		"webhook_code", env.WebhookCode,
		"outcome", result.Outcome,
		"detail", result.Detail)
	return result, nil
}

// ReplayUnprocessed is the worker's pass over receipts whose dispatch failed.
func (s *webhookService) ReplayUnprocessed(ctx context.Context, maxRetries, limit int) (int, error) {
	log := logger.FromContext(ctx)

	receipts, err := s.receipts.ListUnprocessed(ctx, maxRetries, limit)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, receipt := range receipts {
		_, event, err := dto.ParseWebhook(receipt.Payload)
		if err != nil {
			// A payload that stopped parsing will never succeed; close it out.
			if merr := s.receipts.MarkProcessed(ctx, receipt.ID, "unparseable payload: "+err.Error()); merr != nil {
				log.Error("failed to close unparseable receipt", "receipt_id", receipt.ID, "error", merr)
			}
			continue
		}

		result := s.dispatchAndSettle(ctx, receipt.ID, event)
		if result.Outcome != WebhookFailed {
			replayed++
		}
		log.Info("webhook receipt replayed",
			"receipt_id", receipt.ID,
			"webhook_code", receipt.WebhookCode,
			"outcome", result.Outcome)
	}
	return replayed, nil
}

// dispatchAndSettle runs the event through the reconciler and settles the
// receipt: processed on any conclusive outcome, retry-counted on failure.
func (s *webhookService) dispatchAndSettle(ctx context.Context, receiptID string, event dto.WebhookEvent) WebhookResult {
	log := logger.FromContext(ctx)

	outcome, detail, err := s.dispatch(ctx, event)
	if err != nil {
		if rerr := s.receipts.RecordRetry(ctx, receiptID, err.Error()); rerr != nil {
			log.Error("failed to record webhook failure", "receipt_id", receiptID, "error", rerr)
		}
		return WebhookResult{Outcome: WebhookFailed, Detail: err.Error(), ReceiptID: receiptID}
	}

	if merr := s.receipts.MarkProcessed(ctx, receiptID, ""); merr != nil {
		log.Error("failed to mark receipt processed", "receipt_id", receiptID, "error", merr)
	}
	return WebhookResult{Outcome: outcome, Detail: detail, ReceiptID: receiptID}
}

func (s *webhookService) dispatch(ctx context.Context, event dto.WebhookEvent) (WebhookOutcome, string, error) {
	switch ev := event.(type) {
	case *dto.WebhookItemAdded:
		return s.applyItemAdded(ctx, ev)
	case *dto.WebhookSessionFinished:
		return s.applySessionFinished(ctx, ev)
	case *dto.WebhookHandoff:
		return s.applyHandoff(ctx, ev)
	case *dto.WebhookItemError:
		return s.applyItemError(ctx, ev)
	case *dto.WebhookPendingExpiration:
		return s.applyPendingExpiration(ctx, ev)
	case *dto.WebhookPermissionRevoked:
		return s.applyPermissionRevoked(ctx, ev)
	case *dto.WebhookSyncUpdates:
		return s.applySyncUpdates(ctx, ev)
	case *dto.WebhookUnknown:
		return WebhookIgnored, fmt.Sprintf("unrecognized code %s/%s", ev.WebhookType, ev.WebhookCode), nil
	default:
		return WebhookIgnored, "unrecognized event", nil
	}
}

// applyItemAdded handles ITEM_ADD_RESULT: exchange the public token and
// persist the item, unless the session already consumed this token or the
// plan ceiling is hit. An exchange failure leaves the session open so the
// receipt replay can retry the exchange; only SESSION_FINISHED moves the
// session to a terminal status.
func (s *webhookService) applyItemAdded(ctx context.Context, ev *dto.WebhookItemAdded) (WebhookOutcome, string, error) {
	session, outcome, detail, err := s.lookupSession(ctx, ev.LinkToken)
	if session == nil {
		return outcome, detail, err
	}

	if ev.LinkSessionID != "" {
		if err := s.sessions.MarkActive(ctx, session.ID, ev.LinkSessionID); err != nil {
			return WebhookFailed, "", err
		}
	}

	if session.HasPublicToken(ev.PublicToken) {
		return WebhookSkipped, "public token already exchanged", nil
	}

	added, itemID, err := s.links.AddItemFromLink(ctx, session, ev.PublicToken, ev.Institution)
	if err != nil {
		return WebhookFailed, "", err
	}

	switch added {
	case AddAdded:
		return WebhookApplied, "item " + itemID + " linked", nil
	case AddSkippedLimit:
		return WebhookSkipped, "plan item limit reached", nil
	default:
		return WebhookSkipped, "item already linked", nil
	}
}

// applySessionFinished reconciles the terminal notification. Tokens the
// per-item webhooks never delivered are replayed through the same add path
// first; only when every token is settled does the session reach its final
// status. ERROR sessions skip replay and go straight to failed.
func (s *webhookService) applySessionFinished(ctx context.Context, ev *dto.WebhookSessionFinished) (WebhookOutcome, string, error) {
	session, outcome, detail, err := s.lookupSession(ctx, ev.LinkToken)
	if session == nil {
		return outcome, detail, err
	}

	if ev.Status == "ERROR" {
		if err := s.sessions.MarkFailed(ctx, session.ID, "link session ended in error"); err != nil {
			return WebhookFailed, "", err
		}
		return WebhookApplied, "session failed", nil
	}

	recovered := 0
	for _, token := range ev.PublicTokens {
		if session.HasPublicToken(token) {
			continue
		}
		added, _, err := s.links.AddItemFromLink(ctx, session, token, nil)
		if err != nil {
			// Session stays open; the replay worker finishes the job.
			return WebhookFailed, "", err
		}
		if added == AddAdded {
			recovered++
		}
	}

	if err := s.sessions.MarkCompleted(ctx, session.ID); err != nil {
		return WebhookFailed, "", err
	}
	return WebhookApplied, fmt.Sprintf("session completed, %d items recovered", recovered), nil
}

// applyHandoff records the external session id and activates the session.
// Nothing else moves; HANDOFF carries no tokens.
func (s *webhookService) applyHandoff(ctx context.Context, ev *dto.WebhookHandoff) (WebhookOutcome, string, error) {
	session, outcome, detail, err := s.lookupSession(ctx, ev.LinkToken)
	if session == nil {
		return outcome, detail, err
	}
	if err := s.sessions.MarkActive(ctx, session.ID, ev.LinkSessionID); err != nil {
		return WebhookFailed, "", err
	}
	return WebhookApplied, "session active", nil
}

func (s *webhookService) applyItemError(ctx context.Context, ev *dto.WebhookItemError) (WebhookOutcome, string, error) {
	if _, err := s.items.Get(ctx, ev.ItemID); err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			return WebhookIgnored, "unknown item", nil
		}
		return WebhookFailed, "", err
	}

	detail := ev.Error.ErrorCode
	if ev.Error.ErrorMessage != "" {
		detail += ": " + ev.Error.ErrorMessage
	}
	if err := s.items.SetStatus(ctx, ev.ItemID, models.ItemStatusError, detail); err != nil {
		return WebhookFailed, "", err
	}
	return WebhookApplied, "item flagged with error", nil
}

func (s *webhookService) applyPendingExpiration(ctx context.Context, ev *dto.WebhookPendingExpiration) (WebhookOutcome, string, error) {
	item, err := s.items.Get(ctx, ev.ItemID)
	if err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			return WebhookIgnored, "unknown item", nil
		}
		return WebhookFailed, "", err
	}

	// The item keeps syncing until consent actually lapses; only the note is
	// recorded so clients can prompt the user to re-link.
	note := "consent expires at " + ev.ConsentExpirationTime
	if err := s.items.SetStatus(ctx, ev.ItemID, item.Status, note); err != nil {
		return WebhookFailed, "", err
	}
	return WebhookApplied, "expiration recorded", nil
}

func (s *webhookService) applyPermissionRevoked(ctx context.Context, ev *dto.WebhookPermissionRevoked) (WebhookOutcome, string, error) {
	if _, err := s.items.Get(ctx, ev.ItemID); err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			return WebhookIgnored, "unknown item", nil
		}
		return WebhookFailed, "", err
	}
	if err := s.items.SetStatus(ctx, ev.ItemID, models.ItemStatusRevoked, "user revoked access at the institution"); err != nil {
		return WebhookFailed, "", err
	}
	return WebhookApplied, "item revoked", nil
}

func (s *webhookService) applySyncUpdates(ctx context.Context, ev *dto.WebhookSyncUpdates) (WebhookOutcome, string, error) {
	item, err := s.items.Get(ctx, ev.ItemID)
	if err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			return WebhookIgnored, "unknown item", nil
		}
		return WebhookFailed, "", err
	}
	if item.Status != models.ItemStatusActive {
		return WebhookSkipped, "item not active", nil
	}

	s.sync.TriggerInitialSync(item.UserID, item.ItemID)
	return WebhookApplied, "sync triggered", nil
}

// lookupSession resolves a link token to its session. A nil session means the
// caller should return the accompanying outcome: unknown tokens are
// acknowledged without any row written or mutated, and terminal sessions
// absorb replays.
func (s *webhookService) lookupSession(ctx context.Context, linkToken string) (*models.LinkSession, WebhookOutcome, string, error) {
	session, err := s.sessions.GetByLinkToken(ctx, linkToken)
	if err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			return nil, WebhookIgnored, "unknown link token", nil
		}
		return nil, WebhookFailed, "", err
	}
	if session.Status.Terminal() {
		return nil, WebhookIgnored, "session already " + string(session.Status), nil
	}
	return session, "", "", nil
}
