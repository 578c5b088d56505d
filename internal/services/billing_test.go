package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/helpers"
)

// --- fakes ---

type fakeBillingProvider struct {
	checkout    dto.CheckoutResult
	checkoutErr error
	event       dto.BillingEvent
	parseErr    error
}

func (f *fakeBillingProvider) CreateCheckoutSession(ctx context.Context, uid string, plan models.Plan) (dto.CheckoutResult, error) {
	return f.checkout, f.checkoutErr
}

func (f *fakeBillingProvider) ParseWebhook(payload []byte, signatureHeader string) (dto.BillingEvent, error) {
	return f.event, f.parseErr
}

type fakeSubBSStore struct {
	upserted []*models.Subscription
	current  *models.Subscription
}

func (f *fakeSubBSStore) Upsert(ctx context.Context, sub *models.Subscription) error {
	f.upserted = append(f.upserted, sub)
	return nil
}

func (f *fakeSubBSStore) GetCurrent(ctx context.Context, uid string) (*models.Subscription, error) {
	if f.current == nil {
		return nil, errs.NewNotFoundError("no active subscription")
	}
	return f.current, nil
}

type fakeUserBSStore struct {
	user *models.User
}

func (f *fakeUserBSStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	if f.user == nil {
		return nil, errs.NewNotFoundError("user not found")
	}
	return f.user, nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Notify(to, subject, body string) {
	f.sent = append(f.sent, to+":"+subject)
}

func relevantEvent() dto.BillingEvent {
	return dto.BillingEvent{
		Relevant:               true,
		UserID:                 "uid-1",
		Plan:                   models.PlanPro,
		Status:                 models.SubscriptionActive,
		ProviderCustomerID:     "cus_1",
		ProviderSubscriptionID: "sub_1",
		CurrentPeriodStart:     time.Now(),
		CurrentPeriodEnd:       time.Now().Add(30 * 24 * time.Hour),
	}
}

// --- tests ---

func TestHandleWebhookUpsertsSubscription(t *testing.T) {
	provider := &fakeBillingProvider{event: relevantEvent()}
	subs := &fakeSubBSStore{}
	svc := NewBillingService(provider, subs, &fakeUserBSStore{}, &fakeNotifier{})

	if err := svc.HandleWebhook(helpers.TestCtx(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs.upserted) != 1 {
		t.Fatal("subscription not upserted")
	}
	if subs.upserted[0].Plan != models.PlanPro || subs.upserted[0].ProviderSubscriptionID != "sub_1" {
		t.Fatalf("wrong subscription written: %+v", subs.upserted[0])
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	provider := &fakeBillingProvider{parseErr: errors.New("bad signature")}
	subs := &fakeSubBSStore{}
	svc := NewBillingService(provider, subs, &fakeUserBSStore{}, &fakeNotifier{})

	err := svc.HandleWebhook(helpers.TestCtx(), []byte(`{}`), "sig")
	if _, ok := err.(*errs.SignatureError); !ok {
		t.Fatalf("expected SignatureError, got %v", err)
	}
	if len(subs.upserted) != 0 {
		t.Fatal("state written for rejected webhook")
	}
}

func TestHandleWebhookIgnoresIrrelevantEvents(t *testing.T) {
	provider := &fakeBillingProvider{event: dto.BillingEvent{Relevant: false}}
	subs := &fakeSubBSStore{}
	svc := NewBillingService(provider, subs, &fakeUserBSStore{}, &fakeNotifier{})

	if err := svc.HandleWebhook(helpers.TestCtx(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("irrelevant event must be acknowledged: %v", err)
	}
	if len(subs.upserted) != 0 {
		t.Fatal("irrelevant event wrote state")
	}
}

func TestHandleWebhookIgnoresUnattributedEvents(t *testing.T) {
	event := relevantEvent()
	event.UserID = ""
	provider := &fakeBillingProvider{event: event}
	subs := &fakeSubBSStore{}
	svc := NewBillingService(provider, subs, &fakeUserBSStore{}, &fakeNotifier{})

	if err := svc.HandleWebhook(helpers.TestCtx(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("unattributed event must be acknowledged: %v", err)
	}
	if len(subs.upserted) != 0 {
		t.Fatal("unattributed event wrote state")
	}
}

func TestHandleWebhookNotifiesOnCancellation(t *testing.T) {
	event := relevantEvent()
	event.Status = models.SubscriptionCanceled
	provider := &fakeBillingProvider{event: event}
	mail := &fakeNotifier{}
	users := &fakeUserBSStore{user: &models.User{UID: "uid-1", Email: "a@b.test"}}
	svc := NewBillingService(provider, &fakeSubBSStore{}, users, mail)

	if err := svc.HandleWebhook(helpers.TestCtx(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected one notification, got %v", mail.sent)
	}
}

func TestHandleWebhookNoMailOnActive(t *testing.T) {
	provider := &fakeBillingProvider{event: relevantEvent()}
	mail := &fakeNotifier{}
	users := &fakeUserBSStore{user: &models.User{UID: "uid-1", Email: "a@b.test"}}
	svc := NewBillingService(provider, &fakeSubBSStore{}, users, mail)

	if err := svc.HandleWebhook(helpers.TestCtx(), []byte(`{}`), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatalf("no mail expected for active status, got %v", mail.sent)
	}
}

func TestCreateCheckoutRejectsUnknownPlan(t *testing.T) {
	svc := NewBillingService(&fakeBillingProvider{}, &fakeSubBSStore{}, &fakeUserBSStore{}, &fakeNotifier{})

	_, err := svc.CreateCheckout(helpers.TestCtx(), "uid-1", models.Plan("platinum"))
	if _, ok := err.(*errs.ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateCheckoutPassesThrough(t *testing.T) {
	provider := &fakeBillingProvider{checkout: dto.CheckoutResult{SessionID: "cs_1", CheckoutURL: "https://pay.example/cs_1"}}
	svc := NewBillingService(provider, &fakeSubBSStore{}, &fakeUserBSStore{}, &fakeNotifier{})

	result, err := svc.CreateCheckout(helpers.TestCtx(), "uid-1", models.PlanBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CheckoutURL != "https://pay.example/cs_1" {
		t.Fatalf("checkout url not returned, got %q", result.CheckoutURL)
	}
}
