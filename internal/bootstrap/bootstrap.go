package bootstrap

import (
	"context"
	"log/slog"

	gcpkms "cloud.google.com/go/kms/apiv1"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"firebase.google.com/go/v4/auth"

	plaidclient "github.com/banklinkhq/banklink/internal/client/plaid"
	stripeclient "github.com/banklinkhq/banklink/internal/client/stripe"
	"github.com/banklinkhq/banklink/internal/config"
	"github.com/banklinkhq/banklink/internal/store"
	"github.com/banklinkhq/banklink/pkg/logger"
)

type Bootstrap struct {
	Log           *slog.Logger
	DB            *store.DBClient
	Firebase      *auth.Client
	KMS           *gcpkms.KeyManagementClient
	Secrets       *secretmanager.Client
	PlaidAdapter  *plaidclient.Adapter
	StripeAdapter *stripeclient.Adapter
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)

	bs.Secrets, err = secretmanager.NewClient(applicationCtx)
	if err != nil {
		return bs, err
	}
	if err = cfg.LoadSecrets(applicationCtx, bs.Secrets); err != nil {
		return bs, err
	}

	bs.DB, err = store.NewDBClient(cfg.DatabaseURL)
	if err != nil {
		return bs, err
	}
	if err = store.SetupTables(bs.DB); err != nil {
		return bs, err
	}

	bs.Firebase, err = InitFirebase(applicationCtx)
	if err != nil {
		return bs, err
	}

	bs.KMS, err = gcpkms.NewKeyManagementClient(applicationCtx)
	if err != nil {
		return bs, err
	}

	bs.PlaidAdapter = plaidclient.NewAdapter(
		cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnvironment,
		cfg.PlaidWebhookURL, cfg.PlaidRedirectURI)
	bs.StripeAdapter = stripeclient.NewAdapter(
		cfg.StripeAPIKey, cfg.StripeWebhookSecret, cfg.StripePrices,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)

	return bs, nil
}

func (bs *Bootstrap) Close() {
	if bs.DB != nil {
		bs.DB.Close()
	}
	if bs.KMS != nil {
		bs.KMS.Close()
	}
	if bs.Secrets != nil {
		bs.Secrets.Close()
	}
}
