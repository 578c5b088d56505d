package services

import (
	"context"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/logger"
)

type userUSStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

type userService struct {
	users userUSStore
}

func NewUserService(users userUSStore) *userService {
	return &userService{users: users}
}

// EnsureUser registers the authenticated identity on first contact. Existing
// users are returned as-is; registration is idempotent.
func (s *userService) EnsureUser(ctx context.Context, uid, email string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, uid)
	if err == nil {
		return user, nil
	}
	if _, ok := err.(*errs.NotFoundError); !ok {
		return nil, err
	}

	user = &models.User{
		UID:   uid,
		Email: email,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if _, ok := err.(*errs.AlreadyExistsError); ok {
			// Lost a race with a concurrent first request.
			return s.users.GetUser(ctx, uid)
		}
		return nil, err
	}

	logger.FromContext(ctx).Info("user registered")
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return s.users.GetUser(ctx, uid)
}

func (s *userService) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.UID == "" {
		return nil, errs.NewValidationError("uid is required")
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.users.GetUser(ctx, user.UID)
}
