package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/middleware"
	"github.com/banklinkhq/banklink/internal/store"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("create_link_token",
		mcp.WithDescription("Start a bank-linking flow. Returns a link token the client opens in the Link frontend; the resulting connection is reconciled via webhooks."),
	), s.handleCreateLinkToken)

	s.mcp.AddTool(mcp.NewTool("exchange_public_token",
		mcp.WithDescription("Exchange a public token from a completed Link flow for a persisted bank connection. Usually the webhook path does this; the tool covers clients that hold the token directly."),
		mcp.WithString("publicToken", mcp.Required(), mcp.Description("Public token from the Link frontend")),
		mcp.WithString("institutionId", mcp.Description("Institution id from Link metadata")),
		mcp.WithString("institutionName", mcp.Description("Institution name from Link metadata")),
	), s.handleExchangePublicToken)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List the user's linked bank connections with institution name and health status."),
	), s.handleListItems)

	s.mcp.AddTool(mcp.NewTool("list_accounts",
		mcp.WithDescription("List bank accounts and balances, optionally narrowed to one connection."),
		mcp.WithString("itemId", mcp.Description("Limit to accounts of this connection")),
	), s.handleListAccounts)

	s.mcp.AddTool(mcp.NewTool("list_transactions",
		mcp.WithDescription("List synced transactions, newest first."),
		mcp.WithString("accountId", mcp.Description("Limit to one account")),
		mcp.WithString("itemId", mcp.Description("Limit to one connection")),
		mcp.WithString("startDate", mcp.Description("Inclusive lower bound, YYYY-MM-DD")),
		mcp.WithString("endDate", mcp.Description("Inclusive upper bound, YYYY-MM-DD")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows, default 100, cap 500")),
	), s.handleListTransactions)

	s.mcp.AddTool(mcp.NewTool("sync_transactions",
		mcp.WithDescription("Run an on-demand transaction sync across the user's connections."),
		mcp.WithString("itemId", mcp.Description("Sync only this connection")),
	), s.handleSyncTransactions)

	s.mcp.AddTool(mcp.NewTool("unlink_item",
		mcp.WithDescription("Unlink a bank connection. Revokes the credential at the aggregator and removes the accounts."),
		mcp.WithString("itemId", mcp.Required(), mcp.Description("Connection to unlink")),
	), s.handleUnlinkItem)

	s.mcp.AddTool(mcp.NewTool("get_subscription",
		mcp.WithDescription("Show the user's current subscription plan and its linked-connection allowance."),
	), s.handleGetSubscription)
}

// callerUID pulls the authenticated uid out of the request context; the MCP
// transport runs behind the same auth middleware as the REST routes.
func callerUID(ctx context.Context) (string, error) {
	uid := middleware.UID(ctx)
	if uid == "" {
		return "", fmt.Errorf("unauthenticated")
	}
	return uid, nil
}

// toolResult renders data as JSON text plus the named widget, if any.
func toolResult(data any, widgetKey string) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}

	content := []mcp.Content{mcp.NewTextContent(string(encoded))}
	if widgetKey != "" {
		content = append(content, widgetContent(widgetKey))
	}
	return &mcp.CallToolResult{Content: content}, nil
}

func toolError(err error) *mcp.CallToolResult {
	if pl, ok := err.(*errs.PlanLimitError); ok {
		return mcp.NewToolResultError(fmt.Sprintf("plan limit reached: %s", pl.Error()))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) handleCreateLinkToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := callerUID(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.deps.LinkSvc.CreateLinkToken(ctx, uid)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(result, "")
}

func (s *Server) handleExchangePublicToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := callerUID(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	publicToken, err := req.RequireString("publicToken")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var inst *dto.InstitutionMetadata
	if id, name := req.GetString("institutionId", ""), req.GetString("institutionName", ""); id != "" || name != "" {
		inst = &dto.InstitutionMetadata{InstitutionID: id, InstitutionName: name}
	}

	result, err := s.deps.LinkSvc.ExchangePublicToken(ctx, uid, publicToken, inst)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(result, "items")
}

func (s *Server) handleListItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := callerUID(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	items, err := s.deps.ItemSvc.ListItems(ctx, uid)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(items, "items")
}

func (s *Server) handleListAccounts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := callerUID(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	accounts, err := s.deps.ItemSvc.ListAccounts(ctx, uid, req.GetString("itemId", ""))
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(accounts, "accounts")
}

func (s *Server) handleListTransactions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := callerUID(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filter := store.TransactionFilter{
		AccountID: req.GetString("accountId", ""),
		ItemID:    req.GetString("itemId", ""),
		StartDate: req.GetString("startDate", ""),
		EndDate:   req.GetString("endDate", ""),
		Limit:     req.GetInt("limit", 0),
	}

	txs, err := s.deps.ItemSvc.ListTransactions(ctx, uid, filter)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(txs, "transactions")
}

func (s *Server) handleSyncTransactions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := callerUID(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var itemID *string
	if v := req.GetString("itemId", ""); v != "" {
		itemID = &v
	}

	result, err := s.deps.SyncSvc.SyncUser(ctx, uid, itemID)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(result, "")
}

func (s *Server) handleUnlinkItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := callerUID(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	itemID, err := req.RequireString("itemId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.deps.ItemSvc.DeleteItem(ctx, uid, itemID, "unlinked via tool"); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("connection %s unlinked", itemID)), nil
}

func (s *Server) handleGetSubscription(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, err := callerUID(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sub, err := s.deps.BillingSvc.GetSubscription(ctx, uid)
	if err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			return mcp.NewToolResultText("no active subscription"), nil
		}
		return toolError(err), nil
	}
	return toolResult(sub, "subscription")
}
