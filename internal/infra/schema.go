package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS users (
        id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
        username text NOT NULL UNIQUE,
        password text NOT NULL,
        phone_number text,
        wallet_address text,
        created_at timestamptz NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS contacts (
        id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
        user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        name text NOT NULL,
        phone_number text NOT NULL,
        wallet_address text NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS contacts_user_phone_idx ON contacts (user_id, phone_number)`,
	`CREATE TABLE IF NOT EXISTS transactions (
        id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
        user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        sender_phone text NOT NULL,
        receiver_phone text NOT NULL,
        receiver_wallet text NOT NULL,
        amount numeric(18, 2) NOT NULL,
        unit text NOT NULL DEFAULT 'ether',
        status text NOT NULL DEFAULT 'pending',
        tx_hash text,
        created_at timestamptz NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS transactions_user_created_idx ON transactions (user_id, created_at DESC)`,
}

// Migrate creates the users, contacts and transactions tables when missing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
