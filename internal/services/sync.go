package services

import (
	"context"
	"log/slog"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/logger"
)

type syncPlaidClient interface {
	SyncTransactions(ctx context.Context, uid, itemID, accessToken string, cursor *string) (dto.SyncPage, error)
	GetAccounts(ctx context.Context, uid, itemID, accessToken string) ([]models.Account, error)
}

type itemSyncStore interface {
	Get(ctx context.Context, itemID string) (*models.Item, error)
	List(ctx context.Context, uid string) ([]*models.Item, error)
	ListSyncable(ctx context.Context) ([]*models.Item, error)
	SetCursor(ctx context.Context, itemID, cursor string) error
	SetStatus(ctx context.Context, itemID string, status models.ItemStatus, lastError string) error
}

type transactionSyncStore interface {
	UpsertBatch(ctx context.Context, txs []models.Transaction) error
}

type accountSyncStore interface {
	UpsertBatch(ctx context.Context, accounts []models.Account) error
}

type tokenDecrypter interface {
	KmsDecrypt(ctx context.Context, ciphertext string) (string, error)
}

type syncService struct {
	plaid    syncPlaidClient
	items    itemSyncStore
	txs      transactionSyncStore
	accounts accountSyncStore
	crypto   tokenDecrypter
	log      *slog.Logger
}

func NewSyncService(log *slog.Logger, plaid syncPlaidClient, items itemSyncStore, txs transactionSyncStore, accounts accountSyncStore, crypto tokenDecrypter) *syncService {
	return &syncService{
		plaid:    plaid,
		items:    items,
		txs:      txs,
		accounts: accounts,
		crypto:   crypto,
		log:      log,
	}
}

// SyncUser runs a full sync for one user, optionally narrowed to one item.
func (s *syncService) SyncUser(ctx context.Context, uid string, itemID *string) (dto.SyncResult, error) {
	result := dto.SyncResult{}
	log := logger.FromContext(ctx)

	items, err := s.items.List(ctx, uid)
	if err != nil {
		return result, err
	}

	itemsToSync := len(items)
	if itemID != nil {
		itemsToSync = 1
	}
	log.Info("transaction sync started", "item_count", itemsToSync)

	for _, item := range items {
		if itemID != nil && *itemID != item.ItemID {
			continue
		}
		if item.Status != models.ItemStatusActive {
			continue
		}

		itemResult, err := s.SyncItem(ctx, item)
		if err != nil {
			return result, err
		}

		result.ItemsSynced++
		result.TransactionsUpserted += itemResult.TransactionsUpserted
		result.AccountsRefreshed += itemResult.AccountsRefreshed
		if itemID != nil {
			result.Cursor = itemResult.Cursor
			break
		}
	}

	log.Info("transaction sync completed",
		"items_synced", result.ItemsSynced,
		"transactions_upserted", result.TransactionsUpserted)
	return result, nil
}

// SyncItem pages through transactions/sync for one item and refreshes its
// account set. An aggregator failure flips the item into the error state so
// the read paths can surface it.
func (s *syncService) SyncItem(ctx context.Context, item *models.Item) (dto.SyncResult, error) {
	result := dto.SyncResult{}
	log := logger.FromContext(ctx)

	if item.AccessTokenCipher == "" {
		return result, errs.NewValidationError("access token missing for item " + item.ItemID)
	}
	accessToken, err := s.crypto.KmsDecrypt(ctx, item.AccessTokenCipher)
	if err != nil {
		return result, errs.NewEncryptionError(err.Error())
	}

	accounts, err := s.plaid.GetAccounts(ctx, item.UserID, item.ItemID, accessToken)
	if err != nil {
		log.Warn("account refresh failed", "item_id", item.ItemID, "error", err)
	} else {
		if err := s.accounts.UpsertBatch(ctx, accounts); err != nil {
			return result, err
		}
		result.AccountsRefreshed = len(accounts)
	}

	var cursor *string
	if item.SyncCursor != "" {
		stored := item.SyncCursor
		cursor = &stored
	}

	latestCursor := item.SyncCursor
	hasMore := true
	for hasMore {
		page, err := s.plaid.SyncTransactions(ctx, item.UserID, item.ItemID, accessToken, cursor)
		if err != nil {
			log.Warn("item sync failed", "item_id", item.ItemID, "error", err)
			if serr := s.items.SetStatus(ctx, item.ItemID, models.ItemStatusError, err.Error()); serr != nil {
				log.Error("failed to record item error state", "item_id", item.ItemID, "error", serr)
			}
			return result, errs.NewExternalServiceError("plaid", err.Error(), true)
		}

		if len(page.Transactions) > 0 {
			if err := s.txs.UpsertBatch(ctx, page.Transactions); err != nil {
				return result, err
			}
			result.TransactionsUpserted += len(page.Transactions)
		}

		latestCursor = page.Cursor
		cursor = &latestCursor
		hasMore = page.HasMore
	}

	if latestCursor != "" && latestCursor != item.SyncCursor {
		if err := s.items.SetCursor(ctx, item.ItemID, latestCursor); err != nil {
			return result, err
		}
	}

	result.ItemsSynced = 1
	result.Cursor = latestCursor
	return result, nil
}

// SyncItemByID loads the item then syncs it. Used by webhook-triggered syncs
// where only the id is known.
func (s *syncService) SyncItemByID(ctx context.Context, itemID string) (dto.SyncResult, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return dto.SyncResult{}, err
	}
	return s.SyncItem(ctx, item)
}

// TriggerInitialSync kicks off the first sync for a freshly linked item in
// the background. A failure here is logged and swallowed: the webhook that
// caused it must still be acknowledged, and the periodic worker will catch
// the item up.
func (s *syncService) TriggerInitialSync(uid, itemID string) {
	go func() {
		log := s.log.With("uid", uid, "item_id", itemID)
		ctx := logger.ToContext(context.Background(), log)

		if _, err := s.SyncItemByID(ctx, itemID); err != nil {
			log.Warn("initial sync failed", "error", err)
			return
		}
		log.Info("initial sync completed")
	}()
}

// SyncAll syncs every active item across users; the background worker's
// periodic pass.
func (s *syncService) SyncAll(ctx context.Context) (dto.SyncResult, error) {
	result := dto.SyncResult{}
	log := logger.FromContext(ctx)

	items, err := s.items.ListSyncable(ctx)
	if err != nil {
		return result, err
	}

	for _, item := range items {
		itemResult, err := s.SyncItem(ctx, item)
		if err != nil {
			// Keep going; the failing item is already flagged.
			log.Warn("sync pass skipped item", "item_id", item.ItemID, "error", err)
			continue
		}
		result.ItemsSynced++
		result.TransactionsUpserted += itemResult.TransactionsUpserted
		result.AccountsRefreshed += itemResult.AccountsRefreshed
	}
	return result, nil
}
