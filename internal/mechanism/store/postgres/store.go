// Package postgres persists subscription keys in PostgreSQL.
// This store is pure I/O; validity decisions belong to the ledger service.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"keygate/internal/mechanism/models"
	id "keygate/pkg/domain"
)

// KeyStore is a PostgreSQL-backed subscription key store. Rows are scoped by
// ledger name so several ledgers can share one database.
type KeyStore struct {
	db     *sql.DB
	ledger string
}

// New constructs a PostgreSQL-backed key store for the named ledger.
func New(db *sql.DB, ledger string) *KeyStore {
	return &KeyStore{db: db, ledger: ledger}
}

// Schema creates the subscription_keys table. Dev convenience; production
// deployments run migrations out-of-band.
const Schema = `
CREATE TABLE IF NOT EXISTS subscription_keys (
	ledger       TEXT        NOT NULL,
	owner        TEXT        NOT NULL,
	sale_id      UUID        NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL,
	purchased_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (ledger, owner)
)`

func (s *KeyStore) Get(ctx context.Context, principal id.Address) (*models.SubscriptionKey, error) {
	query := `
		SELECT sale_id, owner, expires_at, purchased_at
		FROM subscription_keys
		WHERE ledger = $1 AND owner = $2
	`
	key, err := scanKey(s.db.QueryRowContext(ctx, query, s.ledger, principal.Hex()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription key: %w", err)
	}
	return key, nil
}

func (s *KeyStore) Put(ctx context.Context, key *models.SubscriptionKey) error {
	query := `
		INSERT INTO subscription_keys (ledger, owner, sale_id, expires_at, purchased_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ledger, owner) DO UPDATE SET
			sale_id = EXCLUDED.sale_id,
			expires_at = EXCLUDED.expires_at,
			purchased_at = EXCLUDED.purchased_at
	`
	_, err := s.db.ExecContext(ctx, query,
		s.ledger,
		key.Owner.Hex(),
		key.SaleID.String(),
		key.ExpiresAt,
		key.PurchasedAt,
	)
	if err != nil {
		return fmt.Errorf("put subscription key: %w", err)
	}
	return nil
}

func (s *KeyStore) Delete(ctx context.Context, principal id.Address) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subscription_keys WHERE ledger = $1 AND owner = $2`,
		s.ledger, principal.Hex(),
	)
	if err != nil {
		return fmt.Errorf("delete subscription key: %w", err)
	}
	return nil
}

func (s *KeyStore) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscription_keys WHERE ledger = $1`,
		s.ledger,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count subscription keys: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*models.SubscriptionKey, error) {
	var (
		saleID string
		owner  string
		key    models.SubscriptionKey
	)
	if err := row.Scan(&saleID, &owner, &key.ExpiresAt, &key.PurchasedAt); err != nil {
		return nil, err
	}

	parsedSale, err := id.ParseSaleID(saleID)
	if err != nil {
		return nil, fmt.Errorf("scan sale ID: %w", err)
	}
	parsedOwner, err := id.ParseAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("scan owner: %w", err)
	}
	key.SaleID = parsedSale
	key.Owner = parsedOwner
	return &key, nil
}
