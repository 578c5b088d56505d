package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/pkg/logger"
)

// --- Dependencies (minimal interfaces scoped to this service) ---

type linkPlaidClient interface {
	CreateLinkToken(ctx context.Context, uid string) (linkToken, expiration string, err error)
	ExchangePublicToken(ctx context.Context, publicToken string) (itemID, accessToken string, err error)
	GetInstitution(ctx context.Context, accessToken string) (dto.InstitutionMetadata, error)
}

type linkSessionLSStore interface {
	Create(ctx context.Context, session *models.LinkSession) error
	RecordItemAdded(ctx context.Context, id, publicToken string) error
}

type itemLSStore interface {
	Create(ctx context.Context, item *models.Item) error
	Get(ctx context.Context, itemID string) (*models.Item, error)
}

type planEvaluator interface {
	CanAddItem(ctx context.Context, uid string) (bool, Limit, int, error)
}

type tokenEncrypter interface {
	KmsEncrypt(ctx context.Context, plaintext string) (string, error)
}

type initialSyncTrigger interface {
	TriggerInitialSync(uid, itemID string)
}

// AddOutcome describes what an item-add attempt did.
type AddOutcome int

const (
	AddAdded AddOutcome = iota
	AddSkippedLimit
	AddDuplicate
)

type linkService struct {
	plaid    linkPlaidClient
	sessions linkSessionLSStore
	items    itemLSStore
	plans    planEvaluator
	crypto   tokenEncrypter
	sync     initialSyncTrigger
	clockNow func() time.Time
}

func NewLinkService(plaid linkPlaidClient, sessions linkSessionLSStore, items itemLSStore, plans planEvaluator, crypto tokenEncrypter, sync initialSyncTrigger) *linkService {
	return &linkService{
		plaid:    plaid,
		sessions: sessions,
		items:    items,
		plans:    plans,
		crypto:   crypto,
		sync:     sync,
		clockNow: time.Now,
	}
}

// CreateLinkToken starts a Link flow: issues a token at the aggregator and
// opens a pending LinkSession keyed by it.
func (s *linkService) CreateLinkToken(ctx context.Context, uid string) (dto.LinkTokenResult, error) {
	var result dto.LinkTokenResult

	linkToken, expiration, err := s.plaid.CreateLinkToken(ctx, uid)
	if err != nil {
		return result, errs.NewExternalServiceError("plaid", err.Error(), true)
	}

	session := &models.LinkSession{
		ID:        uuid.NewString(),
		UserID:    uid,
		LinkToken: linkToken,
		Status:    models.LinkSessionPending,
		CreatedAt: s.clockNow(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return result, err
	}

	log := logger.FromContext(ctx)
	log.Info("link session opened", "session_id", session.ID)

	result.LinkToken = linkToken
	result.Expiration = expiration
	result.SessionID = session.ID
	return result, nil
}

// ExchangePublicToken is the tool-facing exchange: the plan limit is
// enforced as a hard error here, unlike the webhook path which skips
// silently.
func (s *linkService) ExchangePublicToken(ctx context.Context, uid, publicToken string, inst *dto.InstitutionMetadata) (dto.ExchangeResult, error) {
	var result dto.ExchangeResult

	allowed, limit, _, err := s.plans.CanAddItem(ctx, uid)
	if err != nil {
		return result, err
	}
	if !allowed {
		if !limit.HasPlan {
			return result, errs.NewPlanLimitError("no active subscription", 0)
		}
		return result, errs.NewPlanLimitError("linked item limit reached for plan", limit.Ceiling)
	}

	item, err := s.exchangeAndPersist(ctx, uid, publicToken, inst)
	if err != nil {
		return result, err
	}

	s.sync.TriggerInitialSync(uid, item.ItemID)

	result.ItemID = item.ItemID
	result.InstitutionName = item.InstitutionName
	return result, nil
}

// AddItemFromLink is the webhook-path exchange. The plan limit is re-checked
// at the time of exchange so that a session adding several items in sequence
// cannot slip past its ceiling, and a limit hit is a silent skip rather than
// an error.
func (s *linkService) AddItemFromLink(ctx context.Context, session *models.LinkSession, publicToken string, inst *dto.InstitutionMetadata) (AddOutcome, string, error) {
	log := logger.FromContext(ctx)

	allowed, limit, count, err := s.plans.CanAddItem(ctx, session.UserID)
	if err != nil {
		return AddSkippedLimit, "", err
	}
	if !allowed {
		log.Warn("plan limit reached, skipping item add",
			"session_id", session.ID,
			"items_linked", count,
			"limit", limit.Ceiling,
			"has_plan", limit.HasPlan)
		return AddSkippedLimit, "", nil
	}

	item, err := s.exchangeAndPersist(ctx, session.UserID, publicToken, inst)
	if err != nil {
		if _, ok := err.(*errs.AlreadyExistsError); ok {
			return AddDuplicate, "", nil
		}
		return AddSkippedLimit, "", err
	}

	if err := s.sessions.RecordItemAdded(ctx, session.ID, publicToken); err != nil {
		return AddAdded, item.ItemID, err
	}

	s.sync.TriggerInitialSync(session.UserID, item.ItemID)

	log.Info("item linked", "item_id", item.ItemID, "institution", item.InstitutionName, "session_id", session.ID)
	return AddAdded, item.ItemID, nil
}

// exchangeAndPersist converts a public token into a persisted Item. The
// exchange and the insert are deliberately not wrapped in one transaction;
// a crash in between leaves an orphaned credential at the aggregator, which
// the receipt replay in the worker narrows but does not close.
func (s *linkService) exchangeAndPersist(ctx context.Context, uid, publicToken string, inst *dto.InstitutionMetadata) (*models.Item, error) {
	log := logger.FromContext(ctx)

	itemID, accessToken, err := s.plaid.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, errs.NewExternalServiceError("plaid", err.Error(), true)
	}

	// Duplicate webhook deliveries re-exchange to the same item id; absorb
	// them by lookup before inserting.
	if existing, err := s.items.Get(ctx, itemID); err == nil {
		if existing.UserID != uid {
			return nil, errs.NewValidationError("item belongs to another user")
		}
		return nil, errs.NewAlreadyExistsError("item already linked")
	} else if _, ok := err.(*errs.NotFoundError); !ok {
		return nil, err
	}

	// Institution metadata is best-effort: a lookup failure must not block
	// item creation.
	if inst == nil || inst.InstitutionName == "" {
		meta, err := s.plaid.GetInstitution(ctx, accessToken)
		if err != nil {
			log.Warn("institution lookup failed, continuing without metadata", "item_id", itemID, "error", err)
		} else {
			inst = &meta
		}
	}

	cipher, err := s.crypto.KmsEncrypt(ctx, accessToken)
	if err != nil {
		return nil, errs.NewEncryptionError(err.Error())
	}

	item := &models.Item{
		ItemID:            itemID,
		UserID:            uid,
		AccessTokenCipher: cipher,
		Status:            models.ItemStatusActive,
		CreatedAt:         s.clockNow(),
	}
	if inst != nil {
		item.InstitutionID = inst.InstitutionID
		item.InstitutionName = inst.InstitutionName
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
