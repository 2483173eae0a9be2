package postgres

// Store composes the vault and index repositories into a storage.VaultStore.
type Store struct {
	*VaultRepo
	*IndexRepo
}

// NewStore creates the composed PostgreSQL vault store.
func NewStore(db *DB) *Store {
	return &Store{
		VaultRepo: NewVaultRepo(db),
		IndexRepo: NewIndexRepo(db),
	}
}
