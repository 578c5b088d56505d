package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
)

type subscriptionStore struct {
	db *DBClient
}

func NewSubscriptionStore(db *DBClient) *subscriptionStore {
	return &subscriptionStore{db: db}
}

var subscriptionColumns = []string{
	"id", "user_id", "plan", "status", "provider_customer_id",
	"provider_subscription_id", "current_period_start", "current_period_end",
	"cancel_at_period_end", "created_at", "updated_at",
}

// Upsert keys on the billing provider's subscription id so replayed provider
// webhooks converge on one row.
func (s *subscriptionStore) Upsert(ctx context.Context, sub *models.Subscription) error {
	now := time.Now()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Insert("subscriptions").
		Columns(subscriptionColumns...).
		Values(sub.ID, sub.UserID, sub.Plan, sub.Status, sub.ProviderCustomerID,
			sub.ProviderSubscriptionID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
			sub.CancelAtPeriodEnd, sub.CreatedAt, sub.UpdatedAt).
		Suffix(`ON CONFLICT (provider_subscription_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			provider_customer_id = EXCLUDED.provider_customer_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = EXCLUDED.updated_at`))
	if err != nil {
		return errs.NewDatabaseError("subscription.upsert", err.Error())
	}
	return nil
}

// GetCurrent returns the user's most recent entitled subscription, or
// NotFound when no active-or-trialing subscription exists.
func (s *subscriptionStore) GetCurrent(ctx context.Context, uid string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.GetOne(ctx, &sub, s.db.Builder().
		Select(subscriptionColumns...).
		From("subscriptions").
		Where(sq.Eq{"user_id": uid}).
		Where(sq.Eq{"status": []models.SubscriptionStatus{
			models.SubscriptionActive, models.SubscriptionTrialing,
		}}).
		OrderBy("current_period_end DESC").
		Limit(1))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("no active subscription")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("subscription.get_current", err.Error())
	}
	return &sub, nil
}
