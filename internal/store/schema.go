package store

import (
	"fmt"
)

// SetupTables creates every table the backend needs. Statements are
// idempotent so both binaries can run them at boot.
func SetupTables(db *DBClient) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uid TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS items (
		item_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
		access_token_cipher TEXT NOT NULL,
		institution_id TEXT NOT NULL DEFAULT '',
		institution_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		sync_cursor TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		deleted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_items_user_id ON items(user_id);`,

	`CREATE TABLE IF NOT EXISTS accounts (
		account_id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES items(item_id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		official_name TEXT NOT NULL DEFAULT '',
		mask TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		subtype TEXT NOT NULL DEFAULT '',
		current_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		available_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		iso_currency_code TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_item_id ON accounts(item_id);`,

	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL DEFAULT '',
		item_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		iso_currency_code TEXT NOT NULL DEFAULT '',
		pending BOOLEAN NOT NULL DEFAULT FALSE,
		date TEXT NOT NULL DEFAULT '',
		authorized_date TEXT NOT NULL DEFAULT '',
		pfc_primary TEXT NOT NULL DEFAULT '',
		pfc_detailed TEXT NOT NULL DEFAULT '',
		pfc_confidence TEXT NOT NULL DEFAULT '',
		pfc_icon_url TEXT NOT NULL DEFAULT '',
		raw JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_item_id ON transactions(item_id);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions(account_id);`,

	`CREATE TABLE IF NOT EXISTS link_sessions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		link_token TEXT NOT NULL UNIQUE,
		link_session_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		items_added INTEGER NOT NULL DEFAULT 0,
		public_tokens TEXT[] NOT NULL DEFAULT '{}',
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_link_sessions_user_id ON link_sessions(user_id);`,

	`CREATE TABLE IF NOT EXISTS webhook_receipts (
		id UUID PRIMARY KEY,
		webhook_type TEXT NOT NULL,
		webhook_code TEXT NOT NULL,
		item_id TEXT NOT NULL DEFAULT '',
		link_token TEXT NOT NULL DEFAULT '',
		payload JSONB NOT NULL DEFAULT '{}',
		processed BOOLEAN NOT NULL DEFAULT FALSE,
		retry_count INTEGER NOT NULL DEFAULT 0,
		processing_error TEXT NOT NULL DEFAULT '',
		received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_receipts_processed ON webhook_receipts(processed, received_at);`,

	`CREATE TABLE IF NOT EXISTS item_deletions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		deleted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_item_deletions_user_id ON item_deletions(user_id);`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		plan TEXT NOT NULL,
		status TEXT NOT NULL,
		provider_customer_id TEXT NOT NULL DEFAULT '',
		provider_subscription_id TEXT NOT NULL UNIQUE,
		current_period_start TIMESTAMPTZ NOT NULL,
		current_period_end TIMESTAMPTZ NOT NULL,
		cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);`,
}
