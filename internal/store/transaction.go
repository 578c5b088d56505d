package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
)

type transactionStore struct {
	db *DBClient
}

func NewTransactionStore(db *DBClient) *transactionStore {
	return &transactionStore{db: db}
}

var transactionColumns = []string{
	"transaction_id", "account_id", "item_id", "user_id", "name", "amount",
	"iso_currency_code", "pending", "date", "authorized_date", "pfc_primary",
	"pfc_detailed", "pfc_confidence", "pfc_icon_url", "raw", "created_at", "updated_at",
}

// UpsertBatch writes one sync page. Keyed on the aggregator transaction id so
// modified transactions overwrite their earlier version.
func (s *transactionStore) UpsertBatch(ctx context.Context, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	now := time.Now()

	for _, t := range txs {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		if len(t.Raw) == 0 {
			t.Raw = []byte(`{}`)
		}

		_, err := s.db.ExecBuilder(ctx, s.db.Builder().
			Insert("transactions").
			Columns(transactionColumns...).
			Values(t.TransactionID, t.AccountID, t.ItemID, t.UserID, t.Name, t.Amount,
				t.Currency, t.Pending, t.Date, t.AuthorizedDate, t.PFCPrimary,
				t.PFCDetailed, t.PFCConfidence, t.PFCIconURL, t.Raw, t.CreatedAt, t.UpdatedAt).
			Suffix(`ON CONFLICT (transaction_id) DO UPDATE SET
				account_id = EXCLUDED.account_id,
				name = EXCLUDED.name,
				amount = EXCLUDED.amount,
				iso_currency_code = EXCLUDED.iso_currency_code,
				pending = EXCLUDED.pending,
				date = EXCLUDED.date,
				authorized_date = EXCLUDED.authorized_date,
				pfc_primary = EXCLUDED.pfc_primary,
				pfc_detailed = EXCLUDED.pfc_detailed,
				pfc_confidence = EXCLUDED.pfc_confidence,
				pfc_icon_url = EXCLUDED.pfc_icon_url,
				raw = EXCLUDED.raw,
				updated_at = EXCLUDED.updated_at`))
		if err != nil {
			return errs.NewDatabaseError("transaction.upsert_batch", err.Error())
		}
	}
	return nil
}

// TransactionFilter narrows List results. Zero values mean "no constraint".
type TransactionFilter struct {
	AccountID string
	ItemID    string
	StartDate string // YYYY-MM-DD, inclusive
	EndDate   string // YYYY-MM-DD, inclusive
	Limit     int
}

func (s *transactionStore) List(ctx context.Context, uid string, filter TransactionFilter) ([]*models.Transaction, error) {
	q := s.db.Builder().
		Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"user_id": uid}).
		OrderBy("date DESC", "transaction_id ASC")

	if filter.AccountID != "" {
		q = q.Where(sq.Eq{"account_id": filter.AccountID})
	}
	if filter.ItemID != "" {
		q = q.Where(sq.Eq{"item_id": filter.ItemID})
	}
	if filter.StartDate != "" {
		q = q.Where(sq.GtOrEq{"date": filter.StartDate})
	}
	if filter.EndDate != "" {
		q = q.Where(sq.LtOrEq{"date": filter.EndDate})
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q = q.Limit(uint64(limit))

	txs := []*models.Transaction{}
	if err := s.db.DoQuery(ctx, &txs, q); err != nil {
		return nil, errs.NewDatabaseError("transaction.list", err.Error())
	}
	return txs, nil
}
