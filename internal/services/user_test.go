package services

import (
	"context"
	"testing"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/helpers"
)

// --- fakes ---

type fakeUserStore struct {
	users     map[string]*models.User
	createErr error
	creates   int
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.UID] = u
	}
	return f
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[user.UID]; ok {
		return errs.NewAlreadyExistsError("user already registered")
	}
	f.users[user.UID] = user
	return nil
}

func (f *fakeUserStore) UpdateUser(ctx context.Context, user *models.User) error {
	f.users[user.UID] = user
	return nil
}

func (f *fakeUserStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	u, ok := f.users[uid]
	if !ok {
		return nil, errs.NewNotFoundError("user not found")
	}
	return u, nil
}

// --- tests ---

func TestEnsureUserCreatesOnFirstContact(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store)

	user, err := svc.EnsureUser(helpers.TestCtx(), "uid-1", "a@b.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.UID != "uid-1" || user.Email != "a@b.test" {
		t.Fatalf("unexpected user %+v", user)
	}
	if store.creates != 1 {
		t.Fatalf("expected 1 create, got %d", store.creates)
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	store := newFakeUserStore(&models.User{UID: "uid-1", Email: "a@b.test"})
	svc := NewUserService(store)

	user, err := svc.EnsureUser(helpers.TestCtx(), "uid-1", "a@b.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.UID != "uid-1" {
		t.Fatalf("unexpected user %+v", user)
	}
	if store.creates != 0 {
		t.Fatal("existing user re-created")
	}
}

// racingUserStore misses the first Get so the create path runs, then reports
// the row as already present, as a concurrent first request would.
type racingUserStore struct {
	*fakeUserStore
	gets int
}

func (f *racingUserStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	f.gets++
	if f.gets == 1 {
		return nil, errs.NewNotFoundError("user not found")
	}
	return f.fakeUserStore.GetUser(ctx, uid)
}

func TestEnsureUserAbsorbsCreateRace(t *testing.T) {
	inner := newFakeUserStore(&models.User{UID: "uid-1", Email: "a@b.test"})
	svc := NewUserService(&racingUserStore{fakeUserStore: inner})

	user, err := svc.EnsureUser(helpers.TestCtx(), "uid-1", "a@b.test")
	if err != nil {
		t.Fatalf("race must resolve to the existing row: %v", err)
	}
	if user.UID != "uid-1" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUpdateUserRequiresUID(t *testing.T) {
	svc := NewUserService(newFakeUserStore())

	_, err := svc.UpdateUser(helpers.TestCtx(), &models.User{Email: "a@b.test"})
	if _, ok := err.(*errs.ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
