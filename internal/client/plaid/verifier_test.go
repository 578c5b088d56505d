package plaidclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/banklinkhq/banklink/pkg/helpers"
)

type fakeKeyFetcher struct {
	key     *ecdsa.PublicKey
	fetches int
}

func (f *fakeKeyFetcher) GetWebhookVerificationKey(ctx context.Context, keyID string) (*ecdsa.PublicKey, error) {
	f.fetches++
	return f.key, nil
}

func signedHeader(t *testing.T, priv *ecdsa.PrivateKey, body []byte, iat time.Time) string {
	t.Helper()
	digest := sha256.Sum256(body)
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iat":                 iat.Unix(),
		"request_body_sha256": hex.EncodeToString(digest[:]),
	})
	token.Header["kid"] = "key-1"
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return signed
}

func newTestVerifier(t *testing.T) (*WebhookVerifier, *ecdsa.PrivateKey, *fakeKeyFetcher) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	fetcher := &fakeKeyFetcher{key: &priv.PublicKey}
	return NewWebhookVerifier(fetcher), priv, fetcher
}

func TestVerifyWebhookAccepts(t *testing.T) {
	v, priv, _ := newTestVerifier(t)
	body := []byte(`{"webhook_type":"LINK"}`)

	header := signedHeader(t, priv, body, time.Now())
	if err := v.VerifyWebhook(helpers.TestCtx(), body, header); err != nil {
		t.Fatalf("valid webhook rejected: %v", err)
	}
}

func TestVerifyWebhookCachesKey(t *testing.T) {
	v, priv, fetcher := newTestVerifier(t)
	body := []byte(`{}`)

	header := signedHeader(t, priv, body, time.Now())
	for i := 0; i < 3; i++ {
		if err := v.VerifyWebhook(helpers.TestCtx(), body, header); err != nil {
			t.Fatalf("valid webhook rejected: %v", err)
		}
	}
	if fetcher.fetches != 1 {
		t.Fatalf("expected one key fetch, got %d", fetcher.fetches)
	}
}

func TestVerifyWebhookRejectsBodyMismatch(t *testing.T) {
	v, priv, _ := newTestVerifier(t)

	header := signedHeader(t, priv, []byte(`{"a":1}`), time.Now())
	if err := v.VerifyWebhook(helpers.TestCtx(), []byte(`{"a":2}`), header); err == nil {
		t.Fatal("tampered body accepted")
	}
}

func TestVerifyWebhookRejectsMalformedDigestClaim(t *testing.T) {
	v, priv, _ := newTestVerifier(t)
	body := []byte(`{}`)

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iat":                 time.Now().Unix(),
		"request_body_sha256": "not-hex",
	})
	token.Header["kid"] = "key-1"
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if err := v.VerifyWebhook(helpers.TestCtx(), body, signed); err == nil {
		t.Fatal("malformed digest claim accepted")
	}
}

func TestVerifyWebhookRejectsStaleToken(t *testing.T) {
	v, priv, _ := newTestVerifier(t)
	body := []byte(`{}`)

	header := signedHeader(t, priv, body, time.Now().Add(-10*time.Minute))
	if err := v.VerifyWebhook(helpers.TestCtx(), body, header); err == nil {
		t.Fatal("stale token accepted")
	}
}

func TestVerifyWebhookRejectsWrongAlgorithm(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	body := []byte(`{}`)

	digest := sha256.Sum256(body)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat":                 time.Now().Unix(),
		"request_body_sha256": hex.EncodeToString(digest[:]),
	})
	token.Header["kid"] = "key-1"
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if err := v.VerifyWebhook(helpers.TestCtx(), body, signed); err == nil {
		t.Fatal("HS256 token accepted")
	}
}

func TestVerifyWebhookRejectsMissingHeader(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	if err := v.VerifyWebhook(helpers.TestCtx(), []byte(`{}`), ""); err == nil {
		t.Fatal("missing header accepted")
	}
}
