package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/banklinkhq/banklink/internal/bootstrap"
	plaidclient "github.com/banklinkhq/banklink/internal/client/plaid"
	"github.com/banklinkhq/banklink/internal/config"
	"github.com/banklinkhq/banklink/internal/crypto"
	"github.com/banklinkhq/banklink/internal/handlers"
	"github.com/banklinkhq/banklink/internal/mcp"
	"github.com/banklinkhq/banklink/internal/response"
	"github.com/banklinkhq/banklink/internal/router"
	"github.com/banklinkhq/banklink/internal/services"
	"github.com/banklinkhq/banklink/internal/store"
	"github.com/banklinkhq/banklink/pkg/mailer"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg := config.New()
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// helpers
	kmsHelper := crypto.NewKMS(bs.KMS, cfg.KMSKeyName)
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, bs.Log)

	// stores
	ustore := store.NewUserStore(bs.DB)
	istore := store.NewItemStore(bs.DB)
	astore := store.NewAccountStore(bs.DB)
	tstore := store.NewTransactionStore(bs.DB)
	lsstore := store.NewLinkSessionStore(bs.DB)
	wrstore := store.NewWebhookReceiptStore(bs.DB)
	substore := store.NewSubscriptionStore(bs.DB)
	delstore := store.NewItemDeletionStore(bs.DB)

	// services
	userv := services.NewUserService(ustore)
	planserv := services.NewPlanService(substore, istore)
	syncserv := services.NewSyncService(bs.Log, bs.PlaidAdapter, istore, tstore, astore, kmsHelper)
	linkserv := services.NewLinkService(bs.PlaidAdapter, lsstore, istore, planserv, kmsHelper, syncserv)
	itemserv := services.NewItemService(bs.PlaidAdapter, istore, astore, tstore, delstore, kmsHelper)
	billserv := services.NewBillingService(bs.StripeAdapter, substore, ustore, mail)

	verifier := plaidclient.NewWebhookVerifier(bs.PlaidAdapter)
	webserv := services.NewWebhookService(verifier, lsstore, wrstore, istore, linkserv, syncserv)

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Firebase = bs.Firebase
	deps.UserSvc = userv
	deps.LinkSvc = linkserv
	deps.ItemSvc = itemserv
	deps.SyncSvc = syncserv
	deps.BillingSvc = billserv
	deps.WebhookSvc = webserv

	// mcp server
	mcpServer := mcp.NewServer(&mcp.Deps{
		Log:        bs.Log,
		LinkSvc:    linkserv,
		ItemSvc:    itemserv,
		SyncSvc:    syncserv,
		BillingSvc: billserv,
	})

	// router
	r := router.NewRouter(deps, mcpServer.Handler())
	err = http.ListenAndServe(":"+cfg.Port, r)
	exitOnError("server start failed", err, bs.Log)
}
