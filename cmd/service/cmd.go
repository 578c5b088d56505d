package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banklinkhq/banklink/internal/bootstrap"
	plaidclient "github.com/banklinkhq/banklink/internal/client/plaid"
	"github.com/banklinkhq/banklink/internal/config"
	"github.com/banklinkhq/banklink/internal/crypto"
	"github.com/banklinkhq/banklink/internal/services"
	"github.com/banklinkhq/banklink/internal/store"
	"github.com/banklinkhq/banklink/pkg/logger"
)

// Background worker: replays webhook receipts whose dispatch failed and runs
// the periodic full-sync pass. Each cycle is independent; a failed cycle is
// logged and the next tick tries again.

const (
	replayInterval   = 5 * time.Minute
	syncInterval     = 6 * time.Hour
	replayMaxRetries = 10
	replayBatchLimit = 100
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

	// stores
	istore := store.NewItemStore(bs.DB)
	astore := store.NewAccountStore(bs.DB)
	tstore := store.NewTransactionStore(bs.DB)
	lsstore := store.NewLinkSessionStore(bs.DB)
	wrstore := store.NewWebhookReceiptStore(bs.DB)
	substore := store.NewSubscriptionStore(bs.DB)

	// services
	planserv := services.NewPlanService(substore, istore)
	syncserv := services.NewSyncService(bs.Log, bs.PlaidAdapter, istore, tstore, astore, kmsHelper)
	linkserv := services.NewLinkService(bs.PlaidAdapter, lsstore, istore, planserv, kmsHelper, syncserv)

	verifier := plaidclient.NewWebhookVerifier(bs.PlaidAdapter)
	webserv := services.NewWebhookService(verifier, lsstore, wrstore, istore, linkserv, syncserv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ToContext(ctx, bs.Log)

	bs.Log.Info("worker started", "replay_interval", replayInterval.String(), "sync_interval", syncInterval.String())

	replayTicker := time.NewTicker(replayInterval)
	defer replayTicker.Stop()
	syncTicker := time.NewTicker(syncInterval)
	defer syncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			bs.Log.Info("worker stopping")
			return
		case <-replayTicker.C:
			replayed, err := webserv.ReplayUnprocessed(ctx, replayMaxRetries, replayBatchLimit)
			if err != nil {
				bs.Log.Error("receipt replay pass failed", "error", err)
				continue
			}
			if replayed > 0 {
				bs.Log.Info("receipt replay pass completed", "replayed", replayed)
			}
		case <-syncTicker.C:
			result, err := syncserv.SyncAll(ctx)
			if err != nil {
				bs.Log.Error("sync pass failed", "error", err)
				continue
			}
			bs.Log.Info("sync pass completed",
				"items_synced", result.ItemsSynced,
				"transactions_upserted", result.TransactionsUpserted)
		}
	}
}
