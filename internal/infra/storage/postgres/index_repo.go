package postgres

import (
	"context"
	"fmt"
)

// IndexRepo implements storage.OwnerIndex and storage.ActiveSet using
// PostgreSQL tables with set semantics. The idempotent add/remove contract
// is carried by ON CONFLICT DO NOTHING and unconditional DELETE.
type IndexRepo struct {
	db *DB
}

// NewIndexRepo creates a new PostgreSQL index repository.
func NewIndexRepo(db *DB) *IndexRepo {
	return &IndexRepo{db: db}
}

// AddOwnerVault appends a vault id under an owner. Insertion order is
// preserved by the position sequence.
func (r *IndexRepo) AddOwnerVault(ctx context.Context, owner, id string) error {
	query := `
		INSERT INTO owner_vaults (owner, vault_id)
		VALUES ($1, $2)
		ON CONFLICT (owner, vault_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, owner, id); err != nil {
		return fmt.Errorf("failed to index vault %s for owner %s: %w", id, owner, err)
	}
	return nil
}

// ListOwnerVaults returns the owner's vault ids in insertion order.
func (r *IndexRepo) ListOwnerVaults(ctx context.Context, owner string) ([]string, error) {
	var ids []string
	query := "SELECT vault_id FROM owner_vaults WHERE owner = $1 ORDER BY position ASC"
	if err := r.db.SelectContext(ctx, &ids, query, owner); err != nil {
		return nil, fmt.Errorf("failed to list vaults for owner %s: %w", owner, err)
	}
	return ids, nil
}

// RemoveOwnerVault drops an owner index entry. Administrative only.
func (r *IndexRepo) RemoveOwnerVault(ctx context.Context, owner, id string) error {
	query := "DELETE FROM owner_vaults WHERE owner = $1 AND vault_id = $2"
	if _, err := r.db.ExecContext(ctx, query, owner, id); err != nil {
		return fmt.Errorf("failed to remove vault %s for owner %s: %w", id, owner, err)
	}
	return nil
}

// AddActive adds a vault id to the active set. Adding a present id is a no-op.
func (r *IndexRepo) AddActive(ctx context.Context, id string) error {
	query := "INSERT INTO active_vaults (vault_id) VALUES ($1) ON CONFLICT (vault_id) DO NOTHING"
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to add %s to active set: %w", id, err)
	}
	return nil
}

// RemoveActive removes a vault id from the active set. Removing an absent id
// is a no-op.
func (r *IndexRepo) RemoveActive(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM active_vaults WHERE vault_id = $1", id); err != nil {
		return fmt.Errorf("failed to remove %s from active set: %w", id, err)
	}
	return nil
}

// ListActive returns the current active set without duplicates.
func (r *IndexRepo) ListActive(ctx context.Context) ([]string, error) {
	var ids []string
	query := "SELECT vault_id FROM active_vaults ORDER BY added_at ASC"
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list active set: %w", err)
	}
	return ids, nil
}
