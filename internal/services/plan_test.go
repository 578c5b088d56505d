package services

import (
	"context"
	"testing"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/helpers"
)

// --- fakes ---

type fakeSubStore struct {
	sub *models.Subscription
	err error
}

func (f *fakeSubStore) GetCurrent(ctx context.Context, uid string) (*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.sub == nil {
		return nil, errs.NewNotFoundError("no active subscription")
	}
	return f.sub, nil
}

type fakeCountStore struct {
	count int
	err   error
}

func (f *fakeCountStore) CountActive(ctx context.Context, uid string) (int, error) {
	return f.count, f.err
}

// --- tests ---

func TestLimitAllows(t *testing.T) {
	cases := []struct {
		name    string
		limit   Limit
		current int
		want    bool
	}{
		{"no plan", Limit{}, 0, false},
		{"under ceiling", Limit{Ceiling: 3, HasPlan: true}, 2, true},
		{"at ceiling", Limit{Ceiling: 3, HasPlan: true}, 3, false},
		{"over ceiling", Limit{Ceiling: 3, HasPlan: true}, 5, false},
		{"unlimited", Limit{Unlimited: true, HasPlan: true}, 1000, true},
	}
	for _, tc := range cases {
		if got := tc.limit.Allows(tc.current); got != tc.want {
			t.Errorf("%s: Allows(%d) = %v, want %v", tc.name, tc.current, got, tc.want)
		}
	}
}

func TestItemLimitPerPlan(t *testing.T) {
	cases := []struct {
		plan    models.Plan
		ceiling int
		unlim   bool
	}{
		{models.PlanBasic, 3, false},
		{models.PlanPro, 10, false},
		{models.PlanEnterprise, 0, true},
	}
	for _, tc := range cases {
		svc := NewPlanService(&fakeSubStore{sub: &models.Subscription{Plan: tc.plan, Status: models.SubscriptionActive}}, &fakeCountStore{})
		limit, err := svc.ItemLimit(helpers.TestCtx(), "uid-1")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.plan, err)
		}
		if !limit.HasPlan {
			t.Fatalf("%s: expected HasPlan", tc.plan)
		}
		if limit.Ceiling != tc.ceiling || limit.Unlimited != tc.unlim {
			t.Fatalf("%s: got ceiling=%d unlimited=%v", tc.plan, limit.Ceiling, limit.Unlimited)
		}
	}
}

func TestItemLimitWithoutSubscription(t *testing.T) {
	svc := NewPlanService(&fakeSubStore{}, &fakeCountStore{})

	limit, err := svc.ItemLimit(helpers.TestCtx(), "uid-1")
	if err != nil {
		t.Fatalf("missing subscription is not an error: %v", err)
	}
	if limit.HasPlan {
		t.Fatal("expected HasPlan=false without a subscription")
	}
	if limit.Allows(0) {
		t.Fatal("no plan must not allow any items")
	}
}

func TestCanAddItemBasicPlanFull(t *testing.T) {
	svc := NewPlanService(
		&fakeSubStore{sub: &models.Subscription{Plan: models.PlanBasic, Status: models.SubscriptionActive}},
		&fakeCountStore{count: 3},
	)

	allowed, limit, count, err := svc.CanAddItem(helpers.TestCtx(), "uid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("4th item on basic plan must be refused")
	}
	if limit.Ceiling != 3 || count != 3 {
		t.Fatalf("got ceiling=%d count=%d", limit.Ceiling, count)
	}
}

func TestCanAddItemUnknownPlanGetsNoAllowance(t *testing.T) {
	// An unmapped provider price upserts a subscription with an empty plan;
	// that must fail closed, not unbounded.
	svc := NewPlanService(
		&fakeSubStore{sub: &models.Subscription{Plan: models.Plan(""), Status: models.SubscriptionActive}},
		&fakeCountStore{count: 1000},
	)

	allowed, limit, _, err := svc.CanAddItem(helpers.TestCtx(), "uid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit.Unlimited {
		t.Fatal("unknown plan must not be unlimited")
	}
	if allowed {
		t.Fatal("unknown plan must not allow items")
	}

	svc = NewPlanService(
		&fakeSubStore{sub: &models.Subscription{Plan: models.Plan("gold"), Status: models.SubscriptionActive}},
		&fakeCountStore{count: 0},
	)
	if allowed, _, _, _ := svc.CanAddItem(helpers.TestCtx(), "uid-1"); allowed {
		t.Fatal("unrecognized plan name must not allow even the first item")
	}
}

func TestCanAddItemEnterpriseNeverFull(t *testing.T) {
	svc := NewPlanService(
		&fakeSubStore{sub: &models.Subscription{Plan: models.PlanEnterprise, Status: models.SubscriptionTrialing}},
		&fakeCountStore{count: 250},
	)

	allowed, _, _, err := svc.CanAddItem(helpers.TestCtx(), "uid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("enterprise plan must always allow")
	}
}
