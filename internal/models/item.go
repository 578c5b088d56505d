package models

import (
	"database/sql"
	"time"
)

type ItemStatus string

const (
	ItemStatusActive  ItemStatus = "active"
	ItemStatusError   ItemStatus = "error"
	ItemStatusRevoked ItemStatus = "revoked"
	ItemStatusDeleted ItemStatus = "deleted"
)

// Item is one linked financial-institution connection. The aggregator's
// item_id is globally unique and serves as the primary key. Items are never
// hard-deleted; DeletedAt marks them gone.
type Item struct {
	ItemID            string       `db:"item_id" json:"itemId"`
	UserID            string       `db:"user_id" json:"userId"`
	AccessTokenCipher string       `db:"access_token_cipher" json:"-"`
	InstitutionID     string       `db:"institution_id" json:"institutionId,omitempty"`
	InstitutionName   string       `db:"institution_name" json:"institutionName,omitempty"`
	Status            ItemStatus   `db:"status" json:"status"`
	SyncCursor        string       `db:"sync_cursor" json:"-"`
	LastError         string       `db:"last_error" json:"lastError,omitempty"`
	DeletedAt         sql.NullTime `db:"deleted_at" json:"-"`
	CreatedAt         time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updatedAt"`
}
