package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/models"
)

type Adapter struct {
	api           *client.API
	webhookSecret string
	prices        map[models.Plan]string
	plansByPrice  map[string]models.Plan
	successURL    string
	cancelURL     string
}

func NewAdapter(apiKey, webhookSecret string, prices map[models.Plan]string, successURL, cancelURL string) *Adapter {
	api := &client.API{}
	api.Init(apiKey, nil)

	plansByPrice := make(map[string]models.Plan, len(prices))
	for plan, price := range prices {
		plansByPrice[price] = plan
	}

	return &Adapter{
		api:           api,
		webhookSecret: webhookSecret,
		prices:        prices,
		plansByPrice:  plansByPrice,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

// CreateCheckoutSession opens a provider-hosted subscription checkout. The
// uid rides along as subscription metadata so later provider webhooks can be
// attributed without a local lookup table.
func (a *Adapter) CreateCheckoutSession(ctx context.Context, uid string, plan models.Plan) (dto.CheckoutResult, error) {
	var result dto.CheckoutResult

	priceID, ok := a.prices[plan]
	if !ok {
		return result, fmt.Errorf("no price configured for plan %q", plan)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(a.successURL),
		CancelURL:         stripe.String(a.cancelURL),
		ClientReferenceID: stripe.String(uid),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"uid": uid},
		},
	}
	params.Context = ctx

	sess, err := a.api.CheckoutSessions.New(params)
	if err != nil {
		return result, err
	}

	result.SessionID = sess.ID
	result.CheckoutURL = sess.URL
	return result, nil
}

// ParseWebhook verifies the provider signature and reduces the event to a
// BillingEvent. Event types outside the subscription lifecycle come back
// with Relevant=false.
func (a *Adapter) ParseWebhook(payload []byte, signatureHeader string) (dto.BillingEvent, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, a.webhookSecret)
	if err != nil {
		return dto.BillingEvent{}, err
	}
	return a.reduceEvent(string(event.Type), event.Data.Raw)
}

func (a *Adapter) reduceEvent(eventType string, raw []byte) (dto.BillingEvent, error) {
	var out dto.BillingEvent

	switch eventType {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		return out, nil
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return out, fmt.Errorf("failed to decode subscription event: %w", err)
	}

	out.Relevant = true
	out.UserID = sub.Metadata["uid"]
	out.ProviderSubscriptionID = sub.ID
	if sub.Customer != nil {
		out.ProviderCustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.Plan = a.plansByPrice[sub.Items.Data[0].Price.ID]
	}
	out.Status = toSubscriptionStatus(sub.Status)
	out.CurrentPeriodStart = time.Unix(sub.CurrentPeriodStart, 0)
	out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0)
	out.CancelAtPeriodEnd = sub.CancelAtPeriodEnd

	if eventType == "customer.subscription.deleted" {
		out.Status = models.SubscriptionCanceled
	}

	return out, nil
}

func toSubscriptionStatus(status stripe.SubscriptionStatus) models.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return models.SubscriptionTrialing
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionPastDue
	default:
		return models.SubscriptionCanceled
	}
}
