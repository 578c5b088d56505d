package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
)

type linkSessionStore struct {
	db *DBClient
}

func NewLinkSessionStore(db *DBClient) *linkSessionStore {
	return &linkSessionStore{db: db}
}

var linkSessionColumns = []string{
	"id", "user_id", "link_token", "link_session_id", "status", "items_added",
	"public_tokens", "metadata", "created_at", "updated_at",
}

func (s *linkSessionStore) Create(ctx context.Context, session *models.LinkSession) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if len(session.Metadata) == 0 {
		session.Metadata = []byte(`{}`)
	}

	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Insert("link_sessions").
		Columns(linkSessionColumns...).
		Values(session.ID, session.UserID, session.LinkToken, session.LinkSessionID,
			session.Status, session.ItemsAdded, session.PublicTokens,
			session.Metadata, session.CreatedAt, session.UpdatedAt))
	if err != nil {
		return errs.NewDatabaseError("link_session.create", err.Error())
	}
	return nil
}

func (s *linkSessionStore) GetByLinkToken(ctx context.Context, linkToken string) (*models.LinkSession, error) {
	var session models.LinkSession
	err := s.db.GetOne(ctx, &session, s.db.Builder().
		Select(linkSessionColumns...).
		From("link_sessions").
		Where(sq.Eq{"link_token": linkToken}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("link session not found")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("link_session.get", err.Error())
	}
	return &session, nil
}

// MarkActive records the external session id and moves pending→active. The
// guard keeps terminal sessions terminal; marking an already-active session
// only refreshes the external id.
func (s *linkSessionStore) MarkActive(ctx context.Context, id, linkSessionID string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("link_sessions").
		Set("link_session_id", linkSessionID).
		Set("status", models.LinkSessionActive).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": []models.LinkSessionStatus{
			models.LinkSessionPending, models.LinkSessionActive,
		}}))
	if err != nil {
		return errs.NewDatabaseError("link_session.mark_active", err.Error())
	}
	return nil
}

// MarkCompleted is a no-op when the session is already terminal.
func (s *linkSessionStore) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("link_sessions").
		Set("status", models.LinkSessionCompleted).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": []models.LinkSessionStatus{
			models.LinkSessionPending, models.LinkSessionActive,
		}}))
	if err != nil {
		return errs.NewDatabaseError("link_session.mark_completed", err.Error())
	}
	return nil
}

// MarkFailed stores the failure detail in the session metadata for operator
// inspection; the webhook sender never sees it.
func (s *linkSessionStore) MarkFailed(ctx context.Context, id, detail string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("link_sessions").
		Set("status", models.LinkSessionFailed).
		Set("metadata", sq.Expr("metadata || jsonb_build_object('error', ?::text)", detail)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": []models.LinkSessionStatus{
			models.LinkSessionPending, models.LinkSessionActive,
		}}))
	if err != nil {
		return errs.NewDatabaseError("link_session.mark_failed", err.Error())
	}
	return nil
}

// RecordItemAdded bumps items_added and remembers the consumed public token.
func (s *linkSessionStore) RecordItemAdded(ctx context.Context, id, publicToken string) error {
	_, err := s.db.ExecBuilder(ctx, s.db.Builder().
		Update("link_sessions").
		Set("items_added", sq.Expr("items_added + 1")).
		Set("public_tokens", sq.Expr("array_append(public_tokens, ?)", publicToken)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return errs.NewDatabaseError("link_session.record_item_added", err.Error())
	}
	return nil
}
