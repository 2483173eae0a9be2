package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/vaultflow/internal/core/domain"
	"github.com/vietddude/vaultflow/internal/engine"
	"github.com/vietddude/vaultflow/internal/infra/storage/memory"
	"github.com/vietddude/vaultflow/internal/notify"
)

type nullVenue struct{}

func (nullVenue) Swap(ctx context.Context, amountIn uint64, assetIn, assetOut, recipient string) (domain.SwapResult, error) {
	return domain.SwapResult{Success: true, AmountIn: amountIn, AmountOut: amountIn - 1}, nil
}

func (nullVenue) Stake(ctx context.Context, amount uint64, beneficiary string) (bool, error) {
	return true, nil
}

type nullScheduler struct{}

func (nullScheduler) ArrangeCallback(ctx context.Context, after time.Duration, op, arg string) error {
	return nil
}

func (nullScheduler) HasPendingCallback(ctx context.Context, op string) (bool, error) {
	return false, nil
}

func newTestServer(t *testing.T) (*Server, *memory.MemoryStore) {
	t.Helper()
	store := memory.NewMemoryStore()
	eng := engine.New(engine.DefaultConfig(), store, nullVenue{}, nullScheduler{}, notify.NewLogNotifier())
	return NewServer(DefaultConfig(), eng, nil), store
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)
	return w
}

func createVault(t *testing.T, s *Server, owner string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/vaults", map[string]any{
		"base_asset":       "USDC",
		"target_asset":     "WMAS",
		"interval_seconds": 3600,
		"amount":           100,
	}, map[string]string{ownerHeader: owner})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		VaultID string `json:"vault_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.VaultID)
	return resp.VaultID
}

func TestCreateVault(t *testing.T) {
	s, store := newTestServer(t)

	id := createVault(t, s, "AU1owner")

	record, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "AU1owner", record.Config.Owner)
	assert.Equal(t, domain.StatusActive, record.Status)
	assert.True(t, record.Config.AutoCompound, "auto_compound should default to true")
}

func TestCreateVaultRequiresOwnerHeader(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/vaults", map[string]any{
		"base_asset":       "USDC",
		"target_asset":     "WMAS",
		"interval_seconds": 3600,
		"amount":           100,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateVaultRejectsInvalidConfig(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/vaults", map[string]any{
		"base_asset":       "USDC",
		"target_asset":     "USDC",
		"interval_seconds": 3600,
		"amount":           100,
	}, map[string]string{ownerHeader: "AU1owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVault(t *testing.T) {
	s, _ := newTestServer(t)

	id := createVault(t, s, "AU1owner")

	w := doJSON(t, s, http.MethodGet, "/api/v1/vaults/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The body is the persisted wire encoding; it must decode cleanly.
	record, err := domain.DecodeRecord(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "AU1owner", record.Config.Owner)
}

func TestGetVaultNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/vaults/vault_missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelVault(t *testing.T) {
	s, store := newTestServer(t)

	id := createVault(t, s, "AU1owner")

	w := doJSON(t, s, http.MethodDelete, "/api/v1/vaults/"+id, nil,
		map[string]string{ownerHeader: "AU1intruder"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cancelled": false}`, w.Body.String())

	w = doJSON(t, s, http.MethodDelete, "/api/v1/vaults/"+id, nil,
		map[string]string{ownerHeader: "AU1owner"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cancelled": true}`, w.Body.String())

	record, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, record.Status)
}

func TestExecuteEndpointAbsorbsEarlyTrigger(t *testing.T) {
	s, store := newTestServer(t)

	id := createVault(t, s, "AU1owner")

	w := doJSON(t, s, http.MethodPost, "/api/v1/vaults/"+id+"/execute", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	record, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, record.TotalExecutions)
}

func TestExecuteBatchEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	a := createVault(t, s, "AU1owner")
	b := createVault(t, s, "AU1owner")

	w := doJSON(t, s, http.MethodPost, "/api/v1/vaults/execute-batch",
		map[string]any{"vault_ids": a + "," + b}, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListOwnerVaults(t *testing.T) {
	s, _ := newTestServer(t)

	a := createVault(t, s, "AU1owner")
	b := createVault(t, s, "AU1owner")
	createVault(t, s, "AU1other")

	w := doJSON(t, s, http.MethodGet, "/api/v1/owners/AU1owner/vaults", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		VaultIDs []string `json:"vault_ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{a, b}, resp.VaultIDs, "owner index preserves creation order")
}

func TestListOwnerVaultsEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/owners/AU1nobody/vaults", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"vault_ids": []}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthzUnhealthy(t *testing.T) {
	store := memory.NewMemoryStore()
	eng := engine.New(engine.DefaultConfig(), store, nullVenue{}, nullScheduler{}, notify.NewLogNotifier())
	s := NewServer(DefaultConfig(), eng, func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	w := doJSON(t, s, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
