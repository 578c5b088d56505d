package models

import (
	"time"
)

// Account is a financial account under an Item. Rows cascade from item
// deletion at the database level.
type Account struct {
	AccountID        string    `db:"account_id" json:"accountId"`
	ItemID           string    `db:"item_id" json:"itemId"`
	UserID           string    `db:"user_id" json:"userId"`
	Name             string    `db:"name" json:"name"`
	OfficialName     string    `db:"official_name" json:"officialName,omitempty"`
	Mask             string    `db:"mask" json:"mask,omitempty"`
	Type             string    `db:"type" json:"type"`
	Subtype          string    `db:"subtype" json:"subtype,omitempty"`
	CurrentBalance   float64   `db:"current_balance" json:"currentBalance"`
	AvailableBalance float64   `db:"available_balance" json:"availableBalance"`
	IsoCurrencyCode  string    `db:"iso_currency_code" json:"isoCurrencyCode,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}
