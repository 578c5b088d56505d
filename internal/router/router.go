package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/banklinkhq/banklink/internal/handlers"
	"github.com/banklinkhq/banklink/internal/middleware"
)

// NewRouter assembles the HTTP surface. Webhook endpoints sit outside the
// auth middleware; they authenticate via provider signatures instead. The MCP
// transport is mounted behind the same auth as the REST routes.
func NewRouter(deps *handlers.Deps, mcpHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	lm := middleware.NewLoggerMiddleware(deps.Log)
	r.Use(lm.LoggerMiddleware)

	ush := handlers.NewUserHandlers(deps)
	lh := handlers.NewLinkHandlers(deps)
	ih := handlers.NewItemHandlers(deps)
	bh := handlers.NewBillingHandlers(deps)
	wh := handlers.NewWebhookHandlers(deps)

	// signature-authenticated
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/plaid", wh.PlaidWebhook)
		r.Post("/billing", bh.BillingWebhook)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// token-authenticated
	auth := middleware.NewMiddleware(deps.Firebase)
	r.Group(func(r chi.Router) {
		r.Use(auth.FirebaseAuth)

		r.Mount("/users", ush.UserRoutes())
		r.Mount("/link", lh.LinkRoutes())
		r.Mount("/", ih.ItemRoutes())
		r.Mount("/billing", bh.BillingRoutes())

		if mcpHandler != nil {
			r.Mount("/mcp", mcpHandler)
		}
	})

	return r
}
