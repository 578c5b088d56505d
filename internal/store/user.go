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

type userStore struct {
	db *DBClient
}

func NewUserStore(db *DBClient) *userStore {
	return &userStore{db: db}
}

func (s *userStore) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Insert("users").
		Columns("uid", "email", "first_name", "last_name", "created_at", "updated_at").
		Values(user.UID, user.Email, user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return errs.NewAlreadyExistsError("user already registered")
		}
		return errs.NewDatabaseError("user.create", err.Error())
	}
	return nil
}

func (s *userStore) UpdateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("users").
		Set("email", user.Email).
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"uid": user.UID}))
	if err != nil {
		return errs.NewDatabaseError("user.update", err.Error())
	}
	return nil
}

func (s *userStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := s.db.GetOne(ctx, &user, s.db.Builder().
		Select("uid", "email", "first_name", "last_name", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{"uid": uid}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("user.get", err.Error())
	}
	return &user, nil
}
