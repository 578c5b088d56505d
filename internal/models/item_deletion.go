package models

import (
	"time"
)

// ItemDeletion is an audit row written when a user unlinks an item.
type ItemDeletion struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	ItemID    string    `db:"item_id" json:"itemId"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	DeletedAt time.Time `db:"deleted_at" json:"deletedAt"`
}
