package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Widgets are small HTML views a client can render next to tool output. Each
// tool that has one embeds the resource in its result; the same resources are
// also listable so clients can prefetch them.

const widgetMIMEType = "text/html"

type widget struct {
	uri         string
	name        string
	description string
	html        string
}

var widgets = map[string]widget{
	"items": {
		uri:         "ui://widget/items.html",
		name:        "Linked institutions",
		description: "Card list of the user's linked bank connections and their health",
		html: `<div class="bl-items" data-source="tool:list_items">
  <template data-for="item">
    <div class="bl-item" data-status="{{item.status}}">
      <span class="bl-item-name">{{item.institutionName}}</span>
      <span class="bl-item-status">{{item.status}}</span>
    </div>
  </template>
</div>`,
	},
	"accounts": {
		uri:         "ui://widget/accounts.html",
		name:        "Accounts",
		description: "Table of accounts with balances, grouped by institution",
		html: `<table class="bl-accounts" data-source="tool:list_accounts">
  <template data-for="account">
    <tr>
      <td>{{account.name}}</td>
      <td>{{account.mask}}</td>
      <td class="bl-balance">{{account.currentBalance}} {{account.isoCurrencyCode}}</td>
    </tr>
  </template>
</table>`,
	},
	"transactions": {
		uri:         "ui://widget/transactions.html",
		name:        "Transactions",
		description: "Scrollable transaction feed with category icons",
		html: `<div class="bl-transactions" data-source="tool:list_transactions">
  <template data-for="tx">
    <div class="bl-tx" data-pending="{{tx.pending}}">
      <img class="bl-tx-icon" src="{{tx.pfcIconUrl}}" alt=""/>
      <span class="bl-tx-name">{{tx.name}}</span>
      <span class="bl-tx-date">{{tx.date}}</span>
      <span class="bl-tx-amount">{{tx.amount}}</span>
    </div>
  </template>
</div>`,
	},
	"subscription": {
		uri:         "ui://widget/subscription.html",
		name:        "Subscription",
		description: "Current plan, status and renewal date",
		html: `<div class="bl-subscription" data-source="tool:get_subscription">
  <span class="bl-plan">{{subscription.plan}}</span>
  <span class="bl-status">{{subscription.status}}</span>
  <span class="bl-renews">{{subscription.currentPeriodEnd}}</span>
</div>`,
	},
}

func (s *Server) registerWidgets() {
	for _, w := range widgets {
		w := w
		resource := mcp.NewResource(w.uri, w.name,
			mcp.WithResourceDescription(w.description),
			mcp.WithMIMEType(widgetMIMEType),
		)
		s.mcp.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      w.uri,
					MIMEType: widgetMIMEType,
					Text:     w.html,
				},
			}, nil
		})
	}
}

// widgetContent returns the embedded-resource content block for a widget key.
func widgetContent(key string) mcp.Content {
	w := widgets[key]
	return mcp.NewEmbeddedResource(mcp.TextResourceContents{
		URI:      w.uri,
		MIMEType: widgetMIMEType,
		Text:     w.html,
	})
}
