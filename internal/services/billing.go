package services

import (
	"context"
	"fmt"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/logger"
)

type billingProvider interface {
	CreateCheckoutSession(ctx context.Context, uid string, plan models.Plan) (dto.CheckoutResult, error)
	ParseWebhook(payload []byte, signatureHeader string) (dto.BillingEvent, error)
}

type subscriptionBSStore interface {
	Upsert(ctx context.Context, sub *models.Subscription) error
	GetCurrent(ctx context.Context, uid string) (*models.Subscription, error)
}

type userBSStore interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

type notifier interface {
	Notify(to, subject, body string)
}

type billingService struct {
	provider billingProvider
	subs     subscriptionBSStore
	users    userBSStore
	mail     notifier
}

func NewBillingService(provider billingProvider, subs subscriptionBSStore, users userBSStore, mail notifier) *billingService {
	return &billingService{
		provider: provider,
		subs:     subs,
		users:    users,
		mail:     mail,
	}
}

// CreateCheckout is a pass-through to the provider-hosted checkout page. No
// subscription row is written here; the provider webhook is the sole writer.
func (s *billingService) CreateCheckout(ctx context.Context, uid string, plan models.Plan) (dto.CheckoutResult, error) {
	if _, ok := planItemCeilings[plan]; !ok && plan != models.PlanEnterprise {
		return dto.CheckoutResult{}, errs.NewValidationError(fmt.Sprintf("unknown plan %q", plan))
	}

	result, err := s.provider.CreateCheckoutSession(ctx, uid, plan)
	if err != nil {
		return dto.CheckoutResult{}, errs.NewExternalServiceError("billing", err.Error(), true)
	}

	logger.FromContext(ctx).Info("checkout session created", "plan", plan, "checkout_session_id", result.SessionID)
	return result, nil
}

// HandleWebhook verifies and applies one provider webhook. Signature failures
// map to SignatureError so the handler can refuse the delivery; anything the
// provider sends that we do not act on is acknowledged without a write.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	log := logger.FromContext(ctx)

	event, err := s.provider.ParseWebhook(payload, signatureHeader)
	if err != nil {
		return errs.NewSignatureError("billing webhook rejected: " + err.Error())
	}
	if !event.Relevant {
		return nil
	}
	if event.UserID == "" {
		log.Warn("billing event without user attribution, ignoring",
			"provider_subscription_id", event.ProviderSubscriptionID)
		return nil
	}
	if event.Plan == "" {
		// Price not in the configured mapping. The row is still written so the
		// state is visible, but an empty plan carries no item allowance.
		log.Warn("billing event with unmapped price, subscription gets no allowance",
			"provider_subscription_id", event.ProviderSubscriptionID)
	}

	sub := &models.Subscription{
		UserID:                 event.UserID,
		Plan:                   event.Plan,
		Status:                 event.Status,
		ProviderCustomerID:     event.ProviderCustomerID,
		ProviderSubscriptionID: event.ProviderSubscriptionID,
		CurrentPeriodStart:     event.CurrentPeriodStart,
		CurrentPeriodEnd:       event.CurrentPeriodEnd,
		CancelAtPeriodEnd:      event.CancelAtPeriodEnd,
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return err
	}

	log.Info("subscription updated",
		"plan", sub.Plan,
		"status", sub.Status,
		"provider_subscription_id", sub.ProviderSubscriptionID)

	s.notifyStatusChange(ctx, event)
	return nil
}

// GetSubscription returns the user's current subscription along with the
// evaluated item limit, or NotFound when they have none.
func (s *billingService) GetSubscription(ctx context.Context, uid string) (*models.Subscription, error) {
	return s.subs.GetCurrent(ctx, uid)
}

// notifyStatusChange mails the user on lifecycle edges worth telling them
// about. Best effort: lookup or delivery failures are logged by the mailer.
func (s *billingService) notifyStatusChange(ctx context.Context, event dto.BillingEvent) {
	var subject, body string
	switch event.Status {
	case models.SubscriptionPastDue:
		subject = "Payment issue with your subscription"
		body = "A recent payment for your subscription failed. Please update your payment method to keep your linked accounts syncing."
	case models.SubscriptionCanceled:
		subject = "Your subscription has ended"
		body = "Your subscription has been canceled. Linked accounts will stop syncing; you can resubscribe at any time."
	default:
		return
	}

	user, err := s.users.GetUser(ctx, event.UserID)
	if err != nil || user.Email == "" {
		logger.FromContext(ctx).Warn("skipping billing notification, no deliverable address", "error", err)
		return
	}
	s.mail.Notify(user.Email, subject, body)
}
