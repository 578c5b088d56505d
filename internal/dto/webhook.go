package dto

import (
	"encoding/json"
)

// The aggregator identifies notifications by a type/code pair. Payload shapes
// differ per code, so the envelope is decoded first and the full body is then
// re-decoded into the matching variant. Codes outside the known set decode to
// WebhookUnknown rather than an error.

const (
	WebhookTypeLink = "LINK"
	WebhookTypeItem = "ITEM"

	CodeItemAddResult   = "ITEM_ADD_RESULT"
	CodeSessionFinished = "SESSION_FINISHED"
	CodeHandoff         = "HANDOFF"

	CodeItemError            = "ERROR"
	CodePendingExpiration    = "PENDING_EXPIRATION"
	CodePermissionRevoked    = "USER_PERMISSION_REVOKED"
	CodeSyncUpdatesAvailable = "SYNC_UPDATES_AVAILABLE"
)

type WebhookEnvelope struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id,omitempty"`
	LinkToken   string `json:"link_token,omitempty"`
}

// WebhookEvent is the closed set of parsed notification variants.
type WebhookEvent interface {
	webhookEvent()
}

type WebhookItemAdded struct {
	LinkToken     string               `json:"link_token"`
	LinkSessionID string               `json:"link_session_id"`
	PublicToken   string               `json:"public_token"`
	Institution   *InstitutionMetadata `json:"institution,omitempty"`
}

type WebhookSessionFinished struct {
	LinkToken     string   `json:"link_token"`
	LinkSessionID string   `json:"link_session_id"`
	Status        string   `json:"status"` // SUCCESS, EXIT or ERROR
	PublicTokens  []string `json:"public_tokens"`
}

type WebhookHandoff struct {
	LinkToken     string `json:"link_token"`
	LinkSessionID string `json:"link_session_id"`
}

type WebhookItemError struct {
	ItemID string `json:"item_id"`
	Error  struct {
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"error"`
}

type WebhookPendingExpiration struct {
	ItemID                string `json:"item_id"`
	ConsentExpirationTime string `json:"consent_expiration_time"`
}

type WebhookPermissionRevoked struct {
	ItemID string `json:"item_id"`
}

type WebhookSyncUpdates struct {
	ItemID                   string `json:"item_id"`
	InitialUpdateComplete    bool   `json:"initial_update_complete"`
	HistoricalUpdateComplete bool   `json:"historical_update_complete"`
}

type WebhookUnknown struct {
	WebhookType string
	WebhookCode string
}

func (WebhookItemAdded) webhookEvent()         {}
func (WebhookSessionFinished) webhookEvent()   {}
func (WebhookHandoff) webhookEvent()           {}
func (WebhookItemError) webhookEvent()         {}
func (WebhookPendingExpiration) webhookEvent() {}
func (WebhookPermissionRevoked) webhookEvent() {}
func (WebhookSyncUpdates) webhookEvent()       {}
func (WebhookUnknown) webhookEvent()           {}

// ParseWebhook decodes a raw notification body into its typed variant. The
// envelope and the returned event are both produced so callers can persist
// the receipt without re-parsing.
func ParseWebhook(body []byte) (WebhookEnvelope, WebhookEvent, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, nil, err
	}

	decode := func(v WebhookEvent) (WebhookEvent, error) {
		if err := json.Unmarshal(body, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	var ev WebhookEvent
	var err error
	switch env.WebhookType {
	case WebhookTypeLink:
		switch env.WebhookCode {
		case CodeItemAddResult:
			ev, err = decode(&WebhookItemAdded{})
		case CodeSessionFinished:
			ev, err = decode(&WebhookSessionFinished{})
		case CodeHandoff:
			ev, err = decode(&WebhookHandoff{})
		}
	case WebhookTypeItem:
		switch env.WebhookCode {
		case CodeItemError:
			ev, err = decode(&WebhookItemError{})
		case CodePendingExpiration:
			ev, err = decode(&WebhookPendingExpiration{})
		case CodePermissionRevoked:
			ev, err = decode(&WebhookPermissionRevoked{})
		case CodeSyncUpdatesAvailable:
			ev, err = decode(&WebhookSyncUpdates{})
		}
	}
	if err != nil {
		return env, nil, err
	}
	if ev == nil {
		ev = &WebhookUnknown{WebhookType: env.WebhookType, WebhookCode: env.WebhookCode}
	}
	return env, ev, nil
}
