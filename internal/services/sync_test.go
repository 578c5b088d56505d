package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/helpers"
	"github.com/banklinkhq/banklink/pkg/logger"
)

// --- fakes ---

type fakeSyncPlaid struct {
	pages     []dto.SyncPage
	syncCalls int
	syncErr   error

	accounts    []models.Account
	accountsErr error

	cursorsSeen []string
}

func (f *fakeSyncPlaid) SyncTransactions(ctx context.Context, uid, itemID, accessToken string, cursor *string) (dto.SyncPage, error) {
	if cursor == nil {
		f.cursorsSeen = append(f.cursorsSeen, "")
	} else {
		f.cursorsSeen = append(f.cursorsSeen, *cursor)
	}
	if f.syncErr != nil {
		return dto.SyncPage{}, f.syncErr
	}
	if f.syncCalls >= len(f.pages) {
		return dto.SyncPage{}, nil
	}
	page := f.pages[f.syncCalls]
	f.syncCalls++
	return page, nil
}

func (f *fakeSyncPlaid) GetAccounts(ctx context.Context, uid, itemID, accessToken string) ([]models.Account, error) {
	return f.accounts, f.accountsErr
}

type fakeItemSyncStore struct {
	items     []*models.Item
	cursors   map[string]string
	statuses  map[string]models.ItemStatus
	cursorErr error
}

func newFakeItemSyncStore(items ...*models.Item) *fakeItemSyncStore {
	return &fakeItemSyncStore{
		items:    items,
		cursors:  map[string]string{},
		statuses: map[string]models.ItemStatus{},
	}
}

func (f *fakeItemSyncStore) Get(ctx context.Context, itemID string) (*models.Item, error) {
	for _, it := range f.items {
		if it.ItemID == itemID {
			return it, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeItemSyncStore) List(ctx context.Context, uid string) ([]*models.Item, error) {
	var out []*models.Item
	for _, it := range f.items {
		if it.UserID == uid {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemSyncStore) ListSyncable(ctx context.Context) ([]*models.Item, error) {
	return f.items, nil
}

func (f *fakeItemSyncStore) SetCursor(ctx context.Context, itemID, cursor string) error {
	if f.cursorErr != nil {
		return f.cursorErr
	}
	f.cursors[itemID] = cursor
	return nil
}

func (f *fakeItemSyncStore) SetStatus(ctx context.Context, itemID string, status models.ItemStatus, lastError string) error {
	f.statuses[itemID] = status
	return nil
}

type fakeTxSyncStore struct {
	batches [][]models.Transaction
	err     error
}

func (f *fakeTxSyncStore) UpsertBatch(ctx context.Context, txs []models.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, txs)
	return nil
}

type fakeAccountSyncStore struct {
	batches [][]models.Account
}

func (f *fakeAccountSyncStore) UpsertBatch(ctx context.Context, accounts []models.Account) error {
	f.batches = append(f.batches, accounts)
	return nil
}

func testSyncService(plaid *fakeSyncPlaid, items *fakeItemSyncStore, txs *fakeTxSyncStore, accounts *fakeAccountSyncStore) *syncService {
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))
	return NewSyncService(log, plaid, items, txs, accounts, &fakeCrypto{})
}

func activeItem(id, uid string) *models.Item {
	return &models.Item{ItemID: id, UserID: uid, AccessTokenCipher: "enc:at-1", Status: models.ItemStatusActive}
}

// --- tests ---

func TestSyncItemPagesUntilDone(t *testing.T) {
	plaid := &fakeSyncPlaid{
		pages: []dto.SyncPage{
			{Transactions: []models.Transaction{{TransactionID: "t1"}, {TransactionID: "t2"}}, Cursor: "c1", HasMore: true},
			{Transactions: []models.Transaction{{TransactionID: "t3"}}, Cursor: "c2", HasMore: false},
		},
	}
	items := newFakeItemSyncStore(activeItem("item-1", "uid-1"))
	txs := &fakeTxSyncStore{}
	svc := testSyncService(plaid, items, txs, &fakeAccountSyncStore{})

	result, err := svc.SyncItem(helpers.TestCtx(), items.items[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TransactionsUpserted != 3 {
		t.Fatalf("expected 3 transactions, got %d", result.TransactionsUpserted)
	}
	if len(txs.batches) != 2 {
		t.Fatalf("expected 2 upsert batches, got %d", len(txs.batches))
	}
	if items.cursors["item-1"] != "c2" {
		t.Fatalf("final cursor not stored, got %q", items.cursors["item-1"])
	}
	// first call has no cursor, second carries the first page's
	if len(plaid.cursorsSeen) != 2 || plaid.cursorsSeen[0] != "" || plaid.cursorsSeen[1] != "c1" {
		t.Fatalf("cursor chain wrong: %v", plaid.cursorsSeen)
	}
}

func TestSyncItemResumesFromStoredCursor(t *testing.T) {
	plaid := &fakeSyncPlaid{
		pages: []dto.SyncPage{{Cursor: "c9", HasMore: false}},
	}
	item := activeItem("item-1", "uid-1")
	item.SyncCursor = "c8"
	items := newFakeItemSyncStore(item)
	svc := testSyncService(plaid, items, &fakeTxSyncStore{}, &fakeAccountSyncStore{})

	if _, err := svc.SyncItem(helpers.TestCtx(), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plaid.cursorsSeen[0] != "c8" {
		t.Fatalf("stored cursor not used, got %q", plaid.cursorsSeen[0])
	}
}

func TestSyncItemRefreshesAccounts(t *testing.T) {
	plaid := &fakeSyncPlaid{
		accounts: []models.Account{{AccountID: "a1"}, {AccountID: "a2"}},
		pages:    []dto.SyncPage{{Cursor: "c1", HasMore: false}},
	}
	accounts := &fakeAccountSyncStore{}
	items := newFakeItemSyncStore(activeItem("item-1", "uid-1"))
	svc := testSyncService(plaid, items, &fakeTxSyncStore{}, accounts)

	result, err := svc.SyncItem(helpers.TestCtx(), items.items[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccountsRefreshed != 2 || len(accounts.batches) != 1 {
		t.Fatalf("accounts not refreshed, result=%+v batches=%d", result, len(accounts.batches))
	}
}

func TestSyncItemFailureFlagsItem(t *testing.T) {
	plaid := &fakeSyncPlaid{syncErr: errors.New("ITEM_LOGIN_REQUIRED")}
	items := newFakeItemSyncStore(activeItem("item-1", "uid-1"))
	svc := testSyncService(plaid, items, &fakeTxSyncStore{}, &fakeAccountSyncStore{})

	_, err := svc.SyncItem(helpers.TestCtx(), items.items[0])
	if err == nil {
		t.Fatal("expected error")
	}
	if items.statuses["item-1"] != models.ItemStatusError {
		t.Fatalf("item not flagged on sync failure, got %q", items.statuses["item-1"])
	}
}

func TestSyncUserSkipsInactiveItems(t *testing.T) {
	errored := activeItem("item-2", "uid-1")
	errored.Status = models.ItemStatusError
	plaid := &fakeSyncPlaid{pages: []dto.SyncPage{{Cursor: "c1", HasMore: false}}}
	items := newFakeItemSyncStore(activeItem("item-1", "uid-1"), errored)
	svc := testSyncService(plaid, items, &fakeTxSyncStore{}, &fakeAccountSyncStore{})

	result, err := svc.SyncUser(helpers.TestCtx(), "uid-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ItemsSynced != 1 {
		t.Fatalf("expected only the active item synced, got %d", result.ItemsSynced)
	}
}

func TestSyncUserNarrowsToRequestedItem(t *testing.T) {
	plaid := &fakeSyncPlaid{pages: []dto.SyncPage{{Cursor: "c1", HasMore: false}}}
	items := newFakeItemSyncStore(activeItem("item-1", "uid-1"), activeItem("item-2", "uid-1"))
	svc := testSyncService(plaid, items, &fakeTxSyncStore{}, &fakeAccountSyncStore{})

	result, err := svc.SyncUser(helpers.TestCtx(), "uid-1", helpers.Ptr("item-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ItemsSynced != 1 {
		t.Fatalf("expected one item synced, got %d", result.ItemsSynced)
	}
	if items.cursors["item-1"] != "" {
		t.Fatal("item outside the filter was synced")
	}
}

func TestSyncAllContinuesPastFailingItem(t *testing.T) {
	// both items share the fake client; fail the whole client and ensure the
	// pass still visits every item without aborting
	plaid := &fakeSyncPlaid{syncErr: errors.New("down")}
	items := newFakeItemSyncStore(activeItem("item-1", "uid-1"), activeItem("item-2", "uid-2"))
	svc := testSyncService(plaid, items, &fakeTxSyncStore{}, &fakeAccountSyncStore{})

	result, err := svc.SyncAll(helpers.TestCtx())
	if err != nil {
		t.Fatalf("pass must not abort: %v", err)
	}
	if result.ItemsSynced != 0 {
		t.Fatalf("expected 0 synced, got %d", result.ItemsSynced)
	}
	if len(plaid.cursorsSeen) != 2 {
		t.Fatalf("expected both items attempted, got %d attempts", len(plaid.cursorsSeen))
	}
}
