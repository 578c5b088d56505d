package config

import (
	"os"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/models"
)

type Config struct {
	ProjectID string
	Region    string
	LogLevel  string
	Port      string

	DatabaseURL string

	PlaidClientID    string
	PlaidSecret      string
	PlaidEnvironment dto.PlaidEnvironment
	PlaidWebhookURL  string
	PlaidRedirectURI string

	KMSKeyName string

	StripeAPIKey        string
	StripeWebhookSecret string
	StripePrices        map[models.Plan]string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func New() *Config {
	return &Config{
		ProjectID: os.Getenv("PROJECTID"),
		Region:    os.Getenv("REGION"),
		LogLevel:  os.Getenv("LOGLEVEL"),
		Port:      getEnvDefault("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASEURL"),

		PlaidClientID:    os.Getenv("PLAIDCLIENTID"),
		PlaidSecret:      os.Getenv("PLAIDSECRET"),
		PlaidEnvironment: getPlaidEnvironment(os.Getenv("PLAIDENVIRONMENT")),
		PlaidWebhookURL:  os.Getenv("PLAIDWEBHOOKURL"),
		PlaidRedirectURI: os.Getenv("PLAIDREDIRECTURI"),

		KMSKeyName: os.Getenv("KMSKEYNAME"),

		StripeAPIKey:        os.Getenv("STRIPEAPIKEY"),
		StripeWebhookSecret: os.Getenv("STRIPEWEBHOOKSECRET"),
		StripePrices: map[models.Plan]string{
			models.PlanBasic:      os.Getenv("STRIPEPRICEBASIC"),
			models.PlanPro:        os.Getenv("STRIPEPRICEPRO"),
			models.PlanEnterprise: os.Getenv("STRIPEPRICEENTERPRISE"),
		},
		CheckoutSuccessURL: os.Getenv("CHECKOUTSUCCESSURL"),
		CheckoutCancelURL:  os.Getenv("CHECKOUTCANCELURL"),

		SMTPHost:     os.Getenv("SMTPHOST"),
		SMTPPort:     getEnvDefault("SMTPPORT", "587"),
		SMTPUsername: os.Getenv("SMTPUSERNAME"),
		SMTPPassword: os.Getenv("SMTPPASSWORD"),
		SMTPFrom:     os.Getenv("SMTPFROM"),
	}
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getPlaidEnvironment(env string) dto.PlaidEnvironment {
	switch env {
	case "sandbox":
		return dto.PlaidSandbox
	default: // "production"
		return dto.PlaidProduction
	}
}
