package models

import (
	"time"
)

type Transaction struct {
	TransactionID  string    `db:"transaction_id" json:"transactionId"`
	AccountID      string    `db:"account_id" json:"accountId"`
	ItemID         string    `db:"item_id" json:"itemId"`
	UserID         string    `db:"user_id" json:"userId"`
	Name           string    `db:"name" json:"name"`
	Amount         float64   `db:"amount" json:"amount"`
	Currency       string    `db:"iso_currency_code" json:"currency"`
	Pending        bool      `db:"pending" json:"pending"`
	Date           string    `db:"date" json:"date"` // YYYY-MM-DD as the aggregator returns
	AuthorizedDate string    `db:"authorized_date" json:"authorizedDate,omitempty"`
	PFCPrimary     string    `db:"pfc_primary" json:"pfcPrimary,omitempty"`
	PFCDetailed    string    `db:"pfc_detailed" json:"pfcDetailed,omitempty"`
	PFCConfidence  string    `db:"pfc_confidence" json:"pfcConfidence,omitempty"`
	PFCIconURL     string    `db:"pfc_icon_url" json:"pfcIconUrl,omitempty"`
	Raw            []byte    `db:"raw" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
