package services

import (
	"context"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
)

// Static plan-to-ceiling table. Enterprise is unlimited and handled
// explicitly; a plan missing from both gets no allowance.
var planItemCeilings = map[models.Plan]int{
	models.PlanBasic: 3,
	models.PlanPro:   10,
}

// Limit is the evaluated item ceiling for a user. "No active plan" and
// "unlimited" are distinct states, not magic integers.
type Limit struct {
	Ceiling   int
	Unlimited bool
	HasPlan   bool
}

// Allows reports whether one more item may be added on top of current.
func (l Limit) Allows(current int) bool {
	if !l.HasPlan {
		return false
	}
	if l.Unlimited {
		return true
	}
	return current < l.Ceiling
}

type subscriptionPLStore interface {
	GetCurrent(ctx context.Context, uid string) (*models.Subscription, error)
}

type itemPLStore interface {
	CountActive(ctx context.Context, uid string) (int, error)
}

type planService struct {
	subs  subscriptionPLStore
	items itemPLStore
}

func NewPlanService(subs subscriptionPLStore, items itemPLStore) *planService {
	return &planService{
		subs:  subs,
		items: items,
	}
}

// ItemLimit resolves the user's current ceiling from their most recent
// active-or-trialing subscription. No such subscription means no items may be
// added at all.
func (s *planService) ItemLimit(ctx context.Context, uid string) (Limit, error) {
	sub, err := s.subs.GetCurrent(ctx, uid)
	if err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			return Limit{}, nil
		}
		return Limit{}, err
	}

	if sub.Plan == models.PlanEnterprise {
		return Limit{Unlimited: true, HasPlan: true}, nil
	}

	// A plan outside the table keeps a zero ceiling. Provider or price-config
	// drift fails closed, never unbounded.
	return Limit{
		Ceiling: planItemCeilings[sub.Plan],
		HasPlan: true,
	}, nil
}

// CanAddItem re-evaluates the ceiling against the live item count. Callers
// must invoke this at every add attempt; a multi-item link session can cross
// the limit partway through.
func (s *planService) CanAddItem(ctx context.Context, uid string) (bool, Limit, int, error) {
	limit, err := s.ItemLimit(ctx, uid)
	if err != nil {
		return false, limit, 0, err
	}

	count, err := s.items.CountActive(ctx, uid)
	if err != nil {
		return false, limit, 0, err
	}

	return limit.Allows(count), limit, count, nil
}
