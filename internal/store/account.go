package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
)

type accountStore struct {
	db *DBClient
}

func NewAccountStore(db *DBClient) *accountStore {
	return &accountStore{db: db}
}

var accountColumns = []string{
	"account_id", "item_id", "user_id", "name", "official_name", "mask",
	"type", "subtype", "current_balance", "available_balance",
	"iso_currency_code", "created_at", "updated_at",
}

// UpsertBatch refreshes account rows from an aggregator accounts/get pass.
func (s *accountStore) UpsertBatch(ctx context.Context, accounts []models.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	now := time.Now()

	for _, a := range accounts {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now

		_, err := s.db.ExecBuilder(ctx, s.db.Builder().
			Insert("accounts").
			Columns(accountColumns...).
			Values(a.AccountID, a.ItemID, a.UserID, a.Name, a.OfficialName, a.Mask,
				a.Type, a.Subtype, a.CurrentBalance, a.AvailableBalance,
				a.IsoCurrencyCode, a.CreatedAt, a.UpdatedAt).
			Suffix(`ON CONFLICT (account_id) DO UPDATE SET
				name = EXCLUDED.name,
				official_name = EXCLUDED.official_name,
				mask = EXCLUDED.mask,
				type = EXCLUDED.type,
				subtype = EXCLUDED.subtype,
				current_balance = EXCLUDED.current_balance,
				available_balance = EXCLUDED.available_balance,
				iso_currency_code = EXCLUDED.iso_currency_code,
				updated_at = EXCLUDED.updated_at`))
		if err != nil {
			return errs.NewDatabaseError("account.upsert_batch", err.Error())
		}
	}
	return nil
}

func (s *accountStore) ListByUser(ctx context.Context, uid string) ([]*models.Account, error) {
	accounts := []*models.Account{}
	err := s.db.DoQuery(ctx, &accounts, s.db.Builder().
		Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"user_id": uid}).
		OrderBy("item_id ASC", "name ASC"))
	if err != nil {
		return nil, errs.NewDatabaseError("account.list_by_user", err.Error())
	}
	return accounts, nil
}

func (s *accountStore) ListByItem(ctx context.Context, itemID string) ([]*models.Account, error) {
	accounts := []*models.Account{}
	err := s.db.DoQuery(ctx, &accounts, s.db.Builder().
		Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("name ASC"))
	if err != nil {
		return nil, errs.NewDatabaseError("account.list_by_item", err.Error())
	}
	return accounts, nil
}

// DeleteByItem removes account rows when an item is unlinked.
func (s *accountStore) DeleteByItem(ctx context.Context, itemID string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Delete("accounts").
		Where(sq.Eq{"item_id": itemID}))
	if err != nil {
		return errs.NewDatabaseError("account.delete_by_item", err.Error())
	}
	return nil
}
