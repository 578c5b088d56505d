package models

import (
	"time"
)

type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

type Subscription struct {
	ID                     string             `db:"id" json:"id"`
	UserID                 string             `db:"user_id" json:"userId"`
	Plan                   Plan               `db:"plan" json:"plan"`
	Status                 SubscriptionStatus `db:"status" json:"status"`
	ProviderCustomerID     string             `db:"provider_customer_id" json:"-"`
	ProviderSubscriptionID string             `db:"provider_subscription_id" json:"-"`
	CurrentPeriodStart     time.Time          `db:"current_period_start" json:"currentPeriodStart"`
	CurrentPeriodEnd       time.Time          `db:"current_period_end" json:"currentPeriodEnd"`
	CancelAtPeriodEnd      bool               `db:"cancel_at_period_end" json:"cancelAtPeriodEnd"`
	CreatedAt              time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time          `db:"updated_at" json:"updatedAt"`
}

// Entitled reports whether the subscription grants plan benefits right now.
func (s *Subscription) Entitled() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}
