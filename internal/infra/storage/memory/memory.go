package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/vietddude/vaultflow/internal/core/domain"
	"github.com/vietddude/vaultflow/internal/infra/storage"
)

// MemoryStore implements storage.VaultStore in process memory. Used by tests
// and infrastructure-free dev mode. Records are held in their encoded form so
// the wire codec is exercised on every read and write, same as the durable
// backends.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	owners  map[string][]string
	active  []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		owners:  make(map[string][]string),
	}
}

// -----------------------------------------------------------------------------
// Vault Repository
// -----------------------------------------------------------------------------

func (s *MemoryStore) Put(ctx context.Context, id string, record *domain.VaultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = domain.EncodeRecord(record)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.VaultRecord, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrVaultNotFound
	}
	return domain.DecodeRecord(data)
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// -----------------------------------------------------------------------------
// Owner Index
// -----------------------------------------------------------------------------

func (s *MemoryStore) AddOwnerVault(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner] = append(s.owners[owner], id)
	return nil
}

func (s *MemoryStore) ListOwnerVaults(ctx context.Context, owner string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.owners[owner]), nil
}

func (s *MemoryStore) RemoveOwnerVault(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner] = slices.DeleteFunc(s.owners[owner], func(v string) bool { return v == id })
	return nil
}

// -----------------------------------------------------------------------------
// Active Set
// -----------------------------------------------------------------------------

func (s *MemoryStore) AddActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.active, id) {
		s.active = append(s.active, id)
	}
	return nil
}

func (s *MemoryStore) RemoveActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = slices.DeleteFunc(s.active, func(v string) bool { return v == id })
	return nil
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.active), nil
}
