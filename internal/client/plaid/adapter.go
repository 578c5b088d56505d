package plaidclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/plaid/plaid-go/v24/plaid"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/models"
)

type Adapter struct {
	client      *plaid.APIClient
	webhookURL  string
	redirectURI string
}

func NewAdapter(clientID, secret string, env dto.PlaidEnvironment, webhookURL, redirectURI string) *Adapter {
	cfg := plaid.NewConfiguration()
	cfg.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	cfg.AddDefaultHeader("PLAID-SECRET", secret)
	cfg.UseEnvironment(toPlaidEnv(env))

	return &Adapter{
		client:      plaid.NewAPIClient(cfg),
		webhookURL:  webhookURL,
		redirectURI: redirectURI,
	}
}

// CreateLinkToken opens a Link flow for the user. The webhook URL registered
// here is where all LINK and ITEM notifications land.
func (a *Adapter) CreateLinkToken(ctx context.Context, uid string) (linkToken, expiration string, err error) {
	req := plaid.NewLinkTokenCreateRequest(
		"Banklink",
		"en",
		[]plaid.CountryCode{plaid.CountryCode("US")},
		plaid.LinkTokenCreateRequestUser{ClientUserId: uid},
	)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})
	if a.webhookURL != "" {
		req.SetWebhook(a.webhookURL)
	}
	if a.redirectURI != "" {
		req.SetRedirectUri(a.redirectURI)
	}

	resp, _, err := a.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", "", err
	}
	return resp.GetLinkToken(), resp.GetExpiration().Format(time.RFC3339), nil
}

func (a *Adapter) ExchangePublicToken(ctx context.Context, publicToken string) (itemID, accessToken string, err error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := a.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return "", "", err
	}
	return resp.GetItemId(), resp.GetAccessToken(), nil
}

// GetInstitution resolves the institution behind an access token via
// item/get followed by institutions/get_by_id.
func (a *Adapter) GetInstitution(ctx context.Context, accessToken string) (dto.InstitutionMetadata, error) {
	var meta dto.InstitutionMetadata

	itemReq := plaid.NewItemGetRequest(accessToken)
	itemResp, _, err := a.client.PlaidApi.ItemGet(ctx).ItemGetRequest(*itemReq).Execute()
	if err != nil {
		return meta, err
	}
	item := itemResp.GetItem()
	meta.InstitutionID = item.GetInstitutionId()
	if meta.InstitutionID == "" {
		return meta, nil
	}

	instReq := plaid.NewInstitutionsGetByIdRequest(meta.InstitutionID, []plaid.CountryCode{plaid.CountryCode("US")})
	instResp, _, err := a.client.PlaidApi.InstitutionsGetById(ctx).InstitutionsGetByIdRequest(*instReq).Execute()
	if err != nil {
		return meta, err
	}
	meta.InstitutionName = instResp.GetInstitution().Name
	return meta, nil
}

// GetAccounts fetches the current account set and balances for an item.
func (a *Adapter) GetAccounts(ctx context.Context, uid, itemID, accessToken string) ([]models.Account, error) {
	req := plaid.NewAccountsGetRequest(accessToken)
	resp, _, err := a.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*req).Execute()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	accounts := make([]models.Account, 0, len(resp.GetAccounts()))
	for _, acct := range resp.GetAccounts() {
		balances := acct.GetBalances()
		accounts = append(accounts, models.Account{
			AccountID:        acct.GetAccountId(),
			ItemID:           itemID,
			UserID:           uid,
			Name:             acct.GetName(),
			OfficialName:     acct.GetOfficialName(),
			Mask:             acct.GetMask(),
			Type:             string(acct.GetType()),
			Subtype:          string(acct.GetSubtype()),
			CurrentBalance:   balances.GetCurrent(),
			AvailableBalance: balances.GetAvailable(),
			IsoCurrencyCode:  balances.GetIsoCurrencyCode(),
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return accounts, nil
}

func (a *Adapter) SyncTransactions(ctx context.Context, uid, itemID, accessToken string, cursor *string) (dto.SyncPage, error) {
	req := plaid.NewTransactionsSyncRequest(accessToken)
	if cursor != nil {
		req.SetCursor(*cursor)
	}
	req.SetCount(500)
	opts := plaid.NewTransactionsSyncRequestOptions()
	opts.SetIncludePersonalFinanceCategory(true)
	req.SetOptions(*opts)

	var page dto.SyncPage

	resp, _, err := a.client.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*req).Execute()
	if err != nil {
		return page, err
	}

	txs := make([]models.Transaction, 0, len(resp.GetAdded())+len(resp.GetModified()))
	now := time.Now()

	convert := func(plaidTx plaid.Transaction) models.Transaction {
		pfc := plaidTx.GetPersonalFinanceCategory()
		raw, _ := json.Marshal(plaidTx)
		return models.Transaction{
			TransactionID:  plaidTx.GetTransactionId(),
			AccountID:      plaidTx.GetAccountId(),
			ItemID:         itemID,
			UserID:         uid,
			Name:           plaidTx.GetName(),
			Amount:         plaidTx.GetAmount(),
			Currency:       plaidTx.GetIsoCurrencyCode(),
			Pending:        plaidTx.GetPending(),
			Date:           plaidTx.GetDate(),
			AuthorizedDate: plaidTx.GetAuthorizedDate(),
			PFCPrimary:     pfc.GetPrimary(),
			PFCDetailed:    pfc.GetDetailed(),
			PFCConfidence:  pfc.GetConfidenceLevel(),
			PFCIconURL:     plaidTx.GetPersonalFinanceCategoryIconUrl(),
			Raw:            raw,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	for _, t := range resp.GetAdded() {
		txs = append(txs, convert(t))
	}
	for _, t := range resp.GetModified() {
		txs = append(txs, convert(t))
	}

	page.Transactions = txs
	page.Cursor = resp.GetNextCursor()
	page.HasMore = resp.GetHasMore()

	return page, nil
}

// RemoveItem invalidates the access token at the aggregator.
func (a *Adapter) RemoveItem(ctx context.Context, accessToken string) error {
	req := plaid.NewItemRemoveRequest(accessToken)
	_, _, err := a.client.PlaidApi.ItemRemove(ctx).ItemRemoveRequest(*req).Execute()
	return err
}

// GetWebhookVerificationKey fetches the ES256 public key for a webhook JWT
// key id and converts it from JWK form.
func (a *Adapter) GetWebhookVerificationKey(ctx context.Context, keyID string) (*ecdsa.PublicKey, error) {
	req := plaid.NewWebhookVerificationKeyGetRequest(keyID)
	resp, _, err := a.client.PlaidApi.WebhookVerificationKeyGet(ctx).WebhookVerificationKeyGetRequest(*req).Execute()
	if err != nil {
		return nil, err
	}
	key := resp.GetKey()
	return jwkToECDSA(key.GetX(), key.GetY())
}

func jwkToECDSA(xB64, yB64 string) (*ecdsa.PublicKey, error) {
	xBytes, err := base64.RawURLEncoding.DecodeString(xB64)
	if err != nil {
		return nil, fmt.Errorf("invalid jwk x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(yB64)
	if err != nil {
		return nil, fmt.Errorf("invalid jwk y coordinate: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}

func toPlaidEnv(env dto.PlaidEnvironment) plaid.Environment {
	switch env {
	case dto.PlaidSandbox:
		return plaid.Sandbox
	default: // dto.PlaidProduction
		return plaid.Production
	}
}
