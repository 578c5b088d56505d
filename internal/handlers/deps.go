package handlers

import (
	"log/slog"

	"firebase.google.com/go/v4/auth"

	"github.com/banklinkhq/banklink/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	Firebase        *auth.Client

	UserSvc    UserService
	LinkSvc    LinkService
	ItemSvc    ItemService
	SyncSvc    SyncService
	BillingSvc BillingService
	WebhookSvc WebhookService
}
