package config

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Secret values are kept out of plain env vars in deployed environments; the
// env var instead names the secret, and the value is resolved at startup.
// Local development sets the plain *_SECRETID vars empty and supplies values
// directly.

func (c *Config) LoadSecrets(ctx context.Context, client *secretmanager.Client) error {
	overlay := []struct {
		envKey string
		target *string
	}{
		{"DATABASEURLSECRETID", &c.DatabaseURL},
		{"PLAIDSECRETSECRETID", &c.PlaidSecret},
		{"STRIPEAPIKEYSECRETID", &c.StripeAPIKey},
		{"STRIPEWEBHOOKSECRETSECRETID", &c.StripeWebhookSecret},
		{"SMTPPASSWORDSECRETID", &c.SMTPPassword},
	}

	for _, s := range overlay {
		secretID := getEnvDefault(s.envKey, "")
		if secretID == "" {
			continue
		}
		value, err := c.accessSecret(ctx, client, secretID)
		if err != nil {
			return fmt.Errorf("loading secret %s: %w", secretID, err)
		}
		*s.target = value
	}
	return nil
}

func (c *Config) accessSecret(ctx context.Context, client *secretmanager.Client, secretID string) (string, error) {
	res, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.ProjectID, secretID),
	})
	if err != nil {
		return "", err
	}
	return string(res.Payload.Data), nil
}
