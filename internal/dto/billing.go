package dto

import (
	"time"

	"github.com/banklinkhq/banklink/internal/models"
)

// CheckoutResult is returned by the checkout pass-through; the client
// redirects the user to the provider-hosted page.
type CheckoutResult struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// BillingEvent is a provider webhook already verified and reduced to the
// fields the subscription service needs. Unrecognized provider events map to
// Relevant=false and are acknowledged without action.
type BillingEvent struct {
	Relevant               bool
	UserID                 string
	Plan                   models.Plan
	Status                 models.SubscriptionStatus
	ProviderCustomerID     string
	ProviderSubscriptionID string
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	CancelAtPeriodEnd      bool
}
