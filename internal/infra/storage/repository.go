package storage

import (
	"context"
	"errors"

	"github.com/vietddude/vaultflow/internal/core/domain"
)

var (
	// ErrVaultNotFound is returned when a vault id has no stored record.
	// Callers must be able to distinguish "no such vault" from a vault in
	// a default state, so Get never returns a zeroed record.
	ErrVaultNotFound = errors.New("vault not found")
)

// VaultRepository persists vault records as encoded bytes. The repository
// never interprets record contents beyond decoding them back; a record that
// fails to decode surfaces domain.ErrCorruptRecord.
type VaultRepository interface {
	// Put stores or replaces the record for a vault id.
	Put(ctx context.Context, id string, record *domain.VaultRecord) error

	// Get retrieves a record. Returns ErrVaultNotFound for a missing id.
	Get(ctx context.Context, id string) (*domain.VaultRecord, error)

	// Delete removes a record. Administrative operation only; steady-state
	// cancellation transitions status instead of erasing.
	Delete(ctx context.Context, id string) error
}

// OwnerIndex maps an owner to the vaults they created, preserving insertion
// order.
type OwnerIndex interface {
	// AddOwnerVault appends a vault id under an owner.
	AddOwnerVault(ctx context.Context, owner, id string) error

	// ListOwnerVaults returns the owner's vault ids in insertion order.
	ListOwnerVaults(ctx context.Context, owner string) ([]string, error)

	// RemoveOwnerVault drops an owner index entry. Administrative only.
	RemoveOwnerVault(ctx context.Context, owner, id string) error
}

// ActiveSet is the membership set of vault ids eligible for automatic
// processing. Add and Remove are idempotent: adding a present id or removing
// an absent one is a no-op, not an error.
type ActiveSet interface {
	AddActive(ctx context.Context, id string) error
	RemoveActive(ctx context.Context, id string) error

	// ListActive returns the current members without duplicates.
	ListActive(ctx context.Context) ([]string, error)
}

// VaultStore groups the three persistence surfaces the engine depends on.
type VaultStore interface {
	VaultRepository
	OwnerIndex
	ActiveSet
}
