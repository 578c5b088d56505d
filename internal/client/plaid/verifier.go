package plaidclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Aggregator webhooks carry a detached JWT in a verification header. The
// claims bind the JWT to the body via a sha256 digest, and the signing key is
// fetched per key id from the aggregator's verification endpoint.

const webhookJWTMaxAge = 5 * time.Minute

type keyFetcher interface {
	GetWebhookVerificationKey(ctx context.Context, keyID string) (*ecdsa.PublicKey, error)
}

type WebhookVerifier struct {
	fetcher keyFetcher

	mu   sync.Mutex
	keys map[string]*ecdsa.PublicKey

	clockNow func() time.Time
}

func NewWebhookVerifier(fetcher keyFetcher) *WebhookVerifier {
	return &WebhookVerifier{
		fetcher:  fetcher,
		keys:     make(map[string]*ecdsa.PublicKey),
		clockNow: time.Now,
	}
}

// VerifyWebhook checks the verification header JWT against the raw body.
// Algorithm is pinned to ES256; anything else is rejected before signature
// verification.
func (v *WebhookVerifier) VerifyWebhook(ctx context.Context, body []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return errors.New("missing verification header")
	}

	var claims struct {
		jwt.RegisteredClaims
		RequestBodySHA256 string `json:"request_body_sha256"`
	}

	token, err := jwt.ParseWithClaims(signatureHeader, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodES256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm %q", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.keyForID(ctx, kid)
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid verification token")
	}

	if claims.IssuedAt == nil {
		return errors.New("verification token missing iat")
	}
	if v.clockNow().Sub(claims.IssuedAt.Time) > webhookJWTMaxAge {
		return errors.New("verification token too old")
	}

	claimed, err := hex.DecodeString(claims.RequestBodySHA256)
	if err != nil {
		return errors.New("malformed body digest claim")
	}
	digest := sha256.Sum256(body)
	if subtle.ConstantTimeCompare(claimed, digest[:]) != 1 {
		return errors.New("body digest mismatch")
	}
	return nil
}

func (v *WebhookVerifier) keyForID(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	v.mu.Lock()
	key, ok := v.keys[kid]
	v.mu.Unlock()
	if ok {
		return key, nil
	}

	key, err := v.fetcher.GetWebhookVerificationKey(ctx, kid)
	if err != nil {
		return nil, fmt.Errorf("fetching verification key %s: %w", kid, err)
	}

	v.mu.Lock()
	v.keys[kid] = key
	v.mu.Unlock()
	return key, nil
}
