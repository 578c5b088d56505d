package models

import (
	"database/sql"
	"time"
)

// WebhookReceipt records one inbound aggregator notification. Receipts are
// written before dispatch so a processing crash leaves an unprocessed row the
// worker can retry.
type WebhookReceipt struct {
	ID              string       `db:"id" json:"id"`
	WebhookType     string       `db:"webhook_type" json:"webhookType"`
	WebhookCode     string       `db:"webhook_code" json:"webhookCode"`
	ItemID          string       `db:"item_id" json:"itemId,omitempty"`
	LinkToken       string       `db:"link_token" json:"linkToken,omitempty"`
	Payload         []byte       `db:"payload" json:"-"`
	Processed       bool         `db:"processed" json:"processed"`
	RetryCount      int          `db:"retry_count" json:"retryCount"`
	ProcessingError string       `db:"processing_error" json:"processingError,omitempty"`
	ReceivedAt      time.Time    `db:"received_at" json:"receivedAt"`
	ProcessedAt     sql.NullTime `db:"processed_at" json:"-"`
}
