package services

import (
	"context"
	"time"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/internal/store"
	"github.com/banklinkhq/banklink/pkg/logger"
)

type itemPlaidClient interface {
	RemoveItem(ctx context.Context, accessToken string) error
}

type itemISStore interface {
	GetForUser(ctx context.Context, uid, itemID string) (*models.Item, error)
	List(ctx context.Context, uid string) ([]*models.Item, error)
	SoftDelete(ctx context.Context, uid, itemID string) error
}

type accountISStore interface {
	ListByUser(ctx context.Context, uid string) ([]*models.Account, error)
	ListByItem(ctx context.Context, itemID string) ([]*models.Account, error)
	DeleteByItem(ctx context.Context, itemID string) error
}

type transactionISStore interface {
	List(ctx context.Context, uid string, filter store.TransactionFilter) ([]*models.Transaction, error)
}

type itemDeletionISStore interface {
	Create(ctx context.Context, deletion *models.ItemDeletion) error
}

type itemService struct {
	plaid     itemPlaidClient
	items     itemISStore
	accounts  accountISStore
	txs       transactionISStore
	deletions itemDeletionISStore
	crypto    tokenDecrypter
	clockNow  func() time.Time
}

func NewItemService(plaid itemPlaidClient, items itemISStore, accounts accountISStore, txs transactionISStore, deletions itemDeletionISStore, crypto tokenDecrypter) *itemService {
	return &itemService{
		plaid:     plaid,
		items:     items,
		accounts:  accounts,
		txs:       txs,
		deletions: deletions,
		crypto:    crypto,
		clockNow:  time.Now,
	}
}

func (s *itemService) ListItems(ctx context.Context, uid string) ([]*models.Item, error) {
	return s.items.List(ctx, uid)
}

func (s *itemService) GetItem(ctx context.Context, uid, itemID string) (*models.Item, error) {
	return s.items.GetForUser(ctx, uid, itemID)
}

// ListAccounts returns accounts for all of the user's items, or a single
// item's when itemID is non-empty. Ownership of the item is checked first.
func (s *itemService) ListAccounts(ctx context.Context, uid, itemID string) ([]*models.Account, error) {
	if itemID == "" {
		return s.accounts.ListByUser(ctx, uid)
	}
	if _, err := s.items.GetForUser(ctx, uid, itemID); err != nil {
		return nil, err
	}
	return s.accounts.ListByItem(ctx, itemID)
}

func (s *itemService) ListTransactions(ctx context.Context, uid string, filter store.TransactionFilter) ([]*models.Transaction, error) {
	if filter.ItemID != "" {
		if _, err := s.items.GetForUser(ctx, uid, filter.ItemID); err != nil {
			return nil, err
		}
	}
	return s.txs.List(ctx, uid, filter)
}

// DeleteItem unlinks an item: the aggregator-side credential is revoked
// first, then local accounts are dropped and the item soft-deleted with an
// audit row. Revocation failure is logged but does not block the local
// delete; leaving the item visible with a dead credential is worse than an
// orphaned credential that expires on its own.
func (s *itemService) DeleteItem(ctx context.Context, uid, itemID, reason string) error {
	log := logger.FromContext(ctx)

	item, err := s.items.GetForUser(ctx, uid, itemID)
	if err != nil {
		return err
	}

	accessToken, err := s.crypto.KmsDecrypt(ctx, item.AccessTokenCipher)
	if err != nil {
		log.Warn("token decrypt failed during unlink, skipping revocation", "item_id", itemID, "error", err)
	} else if err := s.plaid.RemoveItem(ctx, accessToken); err != nil {
		log.Warn("aggregator item removal failed, continuing local delete", "item_id", itemID, "error", err)
	}

	if err := s.accounts.DeleteByItem(ctx, itemID); err != nil {
		return err
	}

	deletion := &models.ItemDeletion{
		UserID:    uid,
		ItemID:    itemID,
		Reason:    reason,
		DeletedAt: s.clockNow(),
	}
	if err := s.deletions.Create(ctx, deletion); err != nil {
		// Audit write failure should not strand the unlink midway.
		log.Error("failed to record item deletion", "item_id", itemID, "error", err)
	}

	if err := s.items.SoftDelete(ctx, uid, itemID); err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			// Concurrent delete already finished the job.
			return nil
		}
		return err
	}

	log.Info("item unlinked", "item_id", itemID)
	return nil
}
