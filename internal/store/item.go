package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
)

const pqUniqueViolation = "23505"

type itemStore struct {
	db *DBClient
}

func NewItemStore(db *DBClient) *itemStore {
	return &itemStore{db: db}
}

var itemColumns = []string{
	"item_id", "user_id", "access_token_cipher", "institution_id",
	"institution_name", "status", "sync_cursor", "last_error", "deleted_at",
	"created_at", "updated_at",
}

// Create inserts a new item. A duplicate external item id maps to
// AlreadyExistsError so callers can absorb replayed webhooks.
func (s *itemStore) Create(ctx context.Context, item *models.Item) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Insert("items").
		Columns("item_id", "user_id", "access_token_cipher", "institution_id",
			"institution_name", "status", "sync_cursor", "last_error",
			"created_at", "updated_at").
		Values(item.ItemID, item.UserID, item.AccessTokenCipher, item.InstitutionID,
			item.InstitutionName, item.Status, item.SyncCursor, item.LastError,
			item.CreatedAt, item.UpdatedAt))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return errs.NewAlreadyExistsError("item already linked")
		}
		return errs.NewDatabaseError("item.create", err.Error())
	}
	return nil
}

func (s *itemStore) Get(ctx context.Context, itemID string) (*models.Item, error) {
	var item models.Item
	err := s.db.GetOne(ctx, &item, s.db.Builder().
		Select(itemColumns...).
		From("items").
		Where(sq.Eq{"item_id": itemID}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("item not found")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("item.get", err.Error())
	}
	return &item, nil
}

func (s *itemStore) GetForUser(ctx context.Context, uid, itemID string) (*models.Item, error) {
	item, err := s.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != uid || item.DeletedAt.Valid {
		return nil, errs.NewNotFoundError("item not found")
	}
	return item, nil
}

// List returns the user's non-deleted items.
func (s *itemStore) List(ctx context.Context, uid string) ([]*models.Item, error) {
	items := []*models.Item{}
	err := s.db.DoQuery(ctx, &items, s.db.Builder().
		Select(itemColumns...).
		From("items").
		Where(sq.Eq{"user_id": uid}).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at ASC"))
	if err != nil {
		return nil, errs.NewDatabaseError("item.list", err.Error())
	}
	return items, nil
}

// ListSyncable returns every non-deleted active item across all users; the
// background worker iterates it.
func (s *itemStore) ListSyncable(ctx context.Context) ([]*models.Item, error) {
	items := []*models.Item{}
	err := s.db.DoQuery(ctx, &items, s.db.Builder().
		Select(itemColumns...).
		From("items").
		Where(sq.Eq{"status": models.ItemStatusActive}).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at ASC"))
	if err != nil {
		return nil, errs.NewDatabaseError("item.list_syncable", err.Error())
	}
	return items, nil
}

// CountActive counts the user's non-deleted items for plan-limit checks.
func (s *itemStore) CountActive(ctx context.Context, uid string) (int, error) {
	var count int
	err := s.db.GetOne(ctx, &count, s.db.Builder().
		Select("COUNT(*)").
		From("items").
		Where(sq.Eq{"user_id": uid}).
		Where(sq.Eq{"deleted_at": nil}))
	if err != nil {
		return 0, errs.NewDatabaseError("item.count_active", err.Error())
	}
	return count, nil
}

func (s *itemStore) SetStatus(ctx context.Context, itemID string, status models.ItemStatus, lastError string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("items").
		Set("status", status).
		Set("last_error", lastError).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"item_id": itemID}))
	if err != nil {
		return errs.NewDatabaseError("item.set_status", err.Error())
	}
	return nil
}

func (s *itemStore) SetCursor(ctx context.Context, itemID, cursor string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("items").
		Set("sync_cursor", cursor).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"item_id": itemID}))
	if err != nil {
		return errs.NewDatabaseError("item.set_cursor", err.Error())
	}
	return nil
}

// SoftDelete marks the item deleted. The row stays; dependent accounts are
// removed by the FK cascade when rows are purged, transactions are kept.
func (s *itemStore) SoftDelete(ctx context.Context, uid, itemID string) error {
	res, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("items").
		Set("status", models.ItemStatusDeleted).
		Set("deleted_at", time.Now()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"item_id": itemID, "user_id": uid}).
		Where(sq.Eq{"deleted_at": nil}))
	if err != nil {
		return errs.NewDatabaseError("item.soft_delete", err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NewNotFoundError("item not found")
	}
	return nil
}
