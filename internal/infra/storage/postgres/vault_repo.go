package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/vaultflow/internal/core/domain"
	"github.com/vietddude/vaultflow/internal/infra/storage"
)

// VaultRepo implements storage.VaultRepository using PostgreSQL. Records are
// stored in their encoded wire form; the database never interprets them.
type VaultRepo struct {
	db *DB
}

// NewVaultRepo creates a new PostgreSQL vault repository.
func NewVaultRepo(db *DB) *VaultRepo {
	return &VaultRepo{db: db}
}

// Put stores or replaces the encoded record for a vault id.
func (r *VaultRepo) Put(ctx context.Context, id string, record *domain.VaultRecord) error {
	query := `
		INSERT INTO vaults (id, record, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, id, string(domain.EncodeRecord(record))); err != nil {
		return fmt.Errorf("failed to put vault %s: %w", id, err)
	}
	return nil
}

// Get retrieves and decodes a vault record. A missing id is reported as
// storage.ErrVaultNotFound; an undecodable row surfaces the codec error.
func (r *VaultRepo) Get(ctx context.Context, id string) (*domain.VaultRecord, error) {
	var encoded string
	err := r.db.GetContext(ctx, &encoded, "SELECT record FROM vaults WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrVaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vault %s: %w", id, err)
	}

	record, err := domain.DecodeRecord([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", id, err)
	}
	return record, nil
}

// Delete removes a vault record. Administrative operation only.
func (r *VaultRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM vaults WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete vault %s: %w", id, err)
	}
	return nil
}
