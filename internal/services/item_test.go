package services

import (
	"context"
	"errors"
	"testing"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/internal/store"
	"github.com/banklinkhq/banklink/pkg/helpers"
)

// --- fakes ---

type fakeItemPlaid struct {
	removeErr    error
	removedToken string
}

func (f *fakeItemPlaid) RemoveItem(ctx context.Context, accessToken string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedToken = accessToken
	return nil
}

type fakeItemISStore struct {
	items       map[string]*models.Item
	softDeleted []string
}

func newFakeItemISStore(items ...*models.Item) *fakeItemISStore {
	f := &fakeItemISStore{items: map[string]*models.Item{}}
	for _, it := range items {
		f.items[it.ItemID] = it
	}
	return f
}

func (f *fakeItemISStore) GetForUser(ctx context.Context, uid, itemID string) (*models.Item, error) {
	it, ok := f.items[itemID]
	if !ok || it.UserID != uid {
		return nil, errs.NewNotFoundError("item not found")
	}
	return it, nil
}

func (f *fakeItemISStore) List(ctx context.Context, uid string) ([]*models.Item, error) {
	var out []*models.Item
	for _, it := range f.items {
		if it.UserID == uid {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemISStore) SoftDelete(ctx context.Context, uid, itemID string) error {
	f.softDeleted = append(f.softDeleted, itemID)
	return nil
}

type fakeAccountISStore struct {
	byItem  map[string][]*models.Account
	deleted []string
}

func (f *fakeAccountISStore) ListByUser(ctx context.Context, uid string) ([]*models.Account, error) {
	var out []*models.Account
	for _, accts := range f.byItem {
		out = append(out, accts...)
	}
	return out, nil
}

func (f *fakeAccountISStore) ListByItem(ctx context.Context, itemID string) ([]*models.Account, error) {
	return f.byItem[itemID], nil
}

func (f *fakeAccountISStore) DeleteByItem(ctx context.Context, itemID string) error {
	f.deleted = append(f.deleted, itemID)
	return nil
}

type fakeTxISStore struct {
	filters []store.TransactionFilter
}

func (f *fakeTxISStore) List(ctx context.Context, uid string, filter store.TransactionFilter) ([]*models.Transaction, error) {
	f.filters = append(f.filters, filter)
	return nil, nil
}

type fakeDeletionStore struct {
	created []*models.ItemDeletion
	err     error
}

func (f *fakeDeletionStore) Create(ctx context.Context, deletion *models.ItemDeletion) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, deletion)
	return nil
}

// --- tests ---

func TestDeleteItemRevokesAndSoftDeletes(t *testing.T) {
	item := &models.Item{ItemID: "item-1", UserID: "uid-1", AccessTokenCipher: "enc:at-1", Status: models.ItemStatusActive}
	plaid := &fakeItemPlaid{}
	items := newFakeItemISStore(item)
	accounts := &fakeAccountISStore{byItem: map[string][]*models.Account{}}
	deletions := &fakeDeletionStore{}
	svc := NewItemService(plaid, items, accounts, &fakeTxISStore{}, deletions, &fakeCrypto{})

	if err := svc.DeleteItem(helpers.TestCtx(), "uid-1", "item-1", "user requested"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plaid.removedToken != "at-1" {
		t.Fatalf("credential not revoked with decrypted token, got %q", plaid.removedToken)
	}
	if len(accounts.deleted) != 1 || accounts.deleted[0] != "item-1" {
		t.Fatalf("accounts not removed, got %v", accounts.deleted)
	}
	if len(deletions.created) != 1 || deletions.created[0].Reason != "user requested" {
		t.Fatalf("deletion audit row missing, got %+v", deletions.created)
	}
	if len(items.softDeleted) != 1 {
		t.Fatal("item not soft-deleted")
	}
}

func TestDeleteItemContinuesWhenRevocationFails(t *testing.T) {
	item := &models.Item{ItemID: "item-1", UserID: "uid-1", AccessTokenCipher: "enc:at-1"}
	plaid := &fakeItemPlaid{removeErr: errors.New("aggregator down")}
	items := newFakeItemISStore(item)
	svc := NewItemService(plaid, items, &fakeAccountISStore{byItem: map[string][]*models.Account{}}, &fakeTxISStore{}, &fakeDeletionStore{}, &fakeCrypto{})

	if err := svc.DeleteItem(helpers.TestCtx(), "uid-1", "item-1", "user requested"); err != nil {
		t.Fatalf("local delete must proceed past revocation failure: %v", err)
	}
	if len(items.softDeleted) != 1 {
		t.Fatal("item not soft-deleted after revocation failure")
	}
}

func TestDeleteItemUnknownOwner(t *testing.T) {
	item := &models.Item{ItemID: "item-1", UserID: "uid-1", AccessTokenCipher: "enc:at-1"}
	svc := NewItemService(&fakeItemPlaid{}, newFakeItemISStore(item), &fakeAccountISStore{}, &fakeTxISStore{}, &fakeDeletionStore{}, &fakeCrypto{})

	err := svc.DeleteItem(helpers.TestCtx(), "uid-other", "item-1", "user requested")
	if _, ok := err.(*errs.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError for foreign item, got %v", err)
	}
}

func TestListAccountsChecksItemOwnership(t *testing.T) {
	item := &models.Item{ItemID: "item-1", UserID: "uid-1"}
	accounts := &fakeAccountISStore{byItem: map[string][]*models.Account{
		"item-1": {{AccountID: "a1"}},
	}}
	svc := NewItemService(&fakeItemPlaid{}, newFakeItemISStore(item), accounts, &fakeTxISStore{}, &fakeDeletionStore{}, &fakeCrypto{})

	if _, err := svc.ListAccounts(helpers.TestCtx(), "uid-other", "item-1"); err == nil {
		t.Fatal("expected ownership check to fail")
	}

	got, err := svc.ListAccounts(helpers.TestCtx(), "uid-1", "item-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 account, got %d", len(got))
	}
}

func TestListTransactionsChecksItemOwnership(t *testing.T) {
	item := &models.Item{ItemID: "item-1", UserID: "uid-1"}
	svc := NewItemService(&fakeItemPlaid{}, newFakeItemISStore(item), &fakeAccountISStore{}, &fakeTxISStore{}, &fakeDeletionStore{}, &fakeCrypto{})

	filter := store.TransactionFilter{ItemID: "item-1"}
	if _, err := svc.ListTransactions(helpers.TestCtx(), "uid-other", filter); err == nil {
		t.Fatal("expected ownership check to fail")
	}
	if _, err := svc.ListTransactions(helpers.TestCtx(), "uid-1", filter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
