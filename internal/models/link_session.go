package models

import (
	"time"

	"github.com/lib/pq"
)

type LinkSessionStatus string

const (
	LinkSessionPending   LinkSessionStatus = "pending"
	LinkSessionActive    LinkSessionStatus = "active"
	LinkSessionCompleted LinkSessionStatus = "completed"
	LinkSessionFailed    LinkSessionStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s LinkSessionStatus) Terminal() bool {
	return s == LinkSessionCompleted || s == LinkSessionFailed
}

// LinkSession is one user-initiated bank-linking flow. It is created when a
// link token is issued and mutated by webhook notifications until it reaches
// completed or failed. PublicTokens records every public token already run
// through the exchange path so that replays from SESSION_FINISHED can be
// deduplicated.
type LinkSession struct {
	ID            string            `db:"id" json:"id"`
	UserID        string            `db:"user_id" json:"userId"`
	LinkToken     string            `db:"link_token" json:"linkToken"`
	LinkSessionID string            `db:"link_session_id" json:"linkSessionId,omitempty"`
	Status        LinkSessionStatus `db:"status" json:"status"`
	ItemsAdded    int               `db:"items_added" json:"itemsAdded"`
	PublicTokens  pq.StringArray    `db:"public_tokens" json:"-"`
	Metadata      []byte            `db:"metadata" json:"-"`
	CreatedAt     time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updatedAt"`
}

func (s *LinkSession) HasPublicToken(token string) bool {
	for _, t := range s.PublicTokens {
		if t == token {
			return true
		}
	}
	return false
}
