package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
)

type itemDeletionStore struct {
	db *DBClient
}

func NewItemDeletionStore(db *DBClient) *itemDeletionStore {
	return &itemDeletionStore{db: db}
}

func (s *itemDeletionStore) Create(ctx context.Context, deletion *models.ItemDeletion) error {
	if deletion.ID == "" {
		deletion.ID = uuid.NewString()
	}
	if deletion.DeletedAt.IsZero() {
		deletion.DeletedAt = time.Now()
	}

	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Insert("item_deletions").
		Columns("id", "user_id", "item_id", "reason", "deleted_at").
		Values(deletion.ID, deletion.UserID, deletion.ItemID, deletion.Reason, deletion.DeletedAt))
	if err != nil {
		return errs.NewDatabaseError("item_deletion.create", err.Error())
	}
	return nil
}
