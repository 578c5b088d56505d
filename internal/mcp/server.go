// Package mcp exposes the bank-linking operations as MCP tools over the
// streamable HTTP transport. The server is mounted behind the same auth
// middleware as the REST routes, so tool handlers read the caller's uid from
// the request context.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/banklinkhq/banklink/internal/dto"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/internal/store"
)

const serverName = "banklink"

type linkService interface {
	CreateLinkToken(ctx context.Context, uid string) (dto.LinkTokenResult, error)
	ExchangePublicToken(ctx context.Context, uid, publicToken string, inst *dto.InstitutionMetadata) (dto.ExchangeResult, error)
}

type itemService interface {
	ListItems(ctx context.Context, uid string) ([]*models.Item, error)
	ListAccounts(ctx context.Context, uid, itemID string) ([]*models.Account, error)
	ListTransactions(ctx context.Context, uid string, filter store.TransactionFilter) ([]*models.Transaction, error)
	DeleteItem(ctx context.Context, uid, itemID, reason string) error
}

type syncService interface {
	SyncUser(ctx context.Context, uid string, itemID *string) (dto.SyncResult, error)
}

type billingService interface {
	GetSubscription(ctx context.Context, uid string) (*models.Subscription, error)
}

type Deps struct {
	Log        *slog.Logger
	Version    string
	LinkSvc    linkService
	ItemSvc    itemService
	SyncSvc    syncService
	BillingSvc billingService
}

type Server struct {
	mcp  *server.MCPServer
	deps *Deps
}

func NewServer(deps *Deps) *Server {
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp: server.NewMCPServer(serverName, version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
		deps: deps,
	}
	s.registerTools()
	s.registerWidgets()
	return s
}

// Handler returns the streamable HTTP transport for mounting on the router.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}
