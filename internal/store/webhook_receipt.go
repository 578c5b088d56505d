package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
)

type webhookReceiptStore struct {
	db *DBClient
}

func NewWebhookReceiptStore(db *DBClient) *webhookReceiptStore {
	return &webhookReceiptStore{db: db}
}

var webhookReceiptColumns = []string{
	"id", "webhook_type", "webhook_code", "item_id", "link_token", "payload",
	"processed", "retry_count", "processing_error", "received_at", "processed_at",
}

func (s *webhookReceiptStore) Create(ctx context.Context, receipt *models.WebhookReceipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if receipt.ReceivedAt.IsZero() {
		receipt.ReceivedAt = time.Now()
	}
	if len(receipt.Payload) == 0 {
		receipt.Payload = []byte(`{}`)
	}

	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Insert("webhook_receipts").
		Columns("id", "webhook_type", "webhook_code", "item_id", "link_token",
			"payload", "processed", "retry_count", "processing_error", "received_at").
		Values(receipt.ID, receipt.WebhookType, receipt.WebhookCode, receipt.ItemID,
			receipt.LinkToken, receipt.Payload, receipt.Processed, receipt.RetryCount,
			receipt.ProcessingError, receipt.ReceivedAt))
	if err != nil {
		return errs.NewDatabaseError("webhook_receipt.create", err.Error())
	}
	return nil
}

// MarkProcessed closes out a receipt. A non-empty processingError records a
// failure that was still acknowledged to the sender.
func (s *webhookReceiptStore) MarkProcessed(ctx context.Context, id, processingError string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("webhook_receipts").
		Set("processed", true).
		Set("processing_error", processingError).
		Set("processed_at", time.Now()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return errs.NewDatabaseError("webhook_receipt.mark_processed", err.Error())
	}
	return nil
}

// RecordRetry bumps the retry counter after a worker replay attempt.
func (s *webhookReceiptStore) RecordRetry(ctx context.Context, id, processingError string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("webhook_receipts").
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("processing_error", processingError).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return errs.NewDatabaseError("webhook_receipt.record_retry", err.Error())
	}
	return nil
}

// ListUnprocessed returns receipts the worker should replay, oldest first.
func (s *webhookReceiptStore) ListUnprocessed(ctx context.Context, maxRetries, limit int) ([]*models.WebhookReceipt, error) {
	receipts := []*models.WebhookReceipt{}
	err := s.db.DoQuery(ctx, &receipts, s.db.Builder().
		Select(webhookReceiptColumns...).
		From("webhook_receipts").
		Where(sq.Eq{"processed": false}).
		Where(sq.Lt{"retry_count": maxRetries}).
		OrderBy("received_at ASC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, errs.NewDatabaseError("webhook_receipt.list_unprocessed", err.Error())
	}
	return receipts, nil
}
