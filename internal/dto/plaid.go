package dto

import (
	"github.com/banklinkhq/banklink/internal/models"
)

// Result of one transactions/sync pass over a single item.
type SyncResult struct {
	ItemsSynced          int    `json:"itemsSynced"`
	TransactionsUpserted int    `json:"transactionsUpserted"`
	AccountsRefreshed    int    `json:"accountsRefreshed"`
	Cursor               string `json:"cursor,omitempty"` // latest cursor when syncing one item
}

// One page from the aggregator's transactions sync endpoint.
type SyncPage struct {
	Transactions []models.Transaction
	Cursor       string
	HasMore      bool
}

// LinkTokenResult is returned by create-link-token.
type LinkTokenResult struct {
	LinkToken  string `json:"linkToken"`
	Expiration string `json:"expiration,omitempty"`
	SessionID  string `json:"sessionId"`
}

// ExchangeResult is returned by the public-token exchange operation.
type ExchangeResult struct {
	ItemID          string `json:"itemId"`
	InstitutionName string `json:"institutionName,omitempty"`
}

// InstitutionMetadata is the optional institution block carried by link
// events. Enrichment via the aggregator fills it in when absent.
type InstitutionMetadata struct {
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"name"`
}

type PlaidEnvironment string

const (
	PlaidSandbox    PlaidEnvironment = "sandbox"
	PlaidProduction PlaidEnvironment = "production"
)
