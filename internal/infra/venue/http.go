package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/vaultflow/internal/core/domain"
)

// Config holds settings for the HTTP venue adapter.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint64        `yaml:"max_retries"`
}

// HTTPVenue talks JSON over HTTP to the swap router and staking service.
// Transient transport failures (connection errors, 5xx) are retried with
// exponential backoff; a venue-level rejection is returned as-is and never
// retried, because the engine must record it, not mask it.
type HTTPVenue struct {
	cfg        Config
	httpClient *http.Client
}

// NewHTTPVenue creates a new HTTP-based venue adapter.
func NewHTTPVenue(cfg Config) *HTTPVenue {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	return &HTTPVenue{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type swapRequest struct {
	AmountIn  uint64 `json:"amount_in"`
	AssetIn   string `json:"asset_in"`
	AssetOut  string `json:"asset_out"`
	Recipient string `json:"recipient"`
}

type swapResponse struct {
	Success   bool   `json:"success"`
	AmountIn  uint64 `json:"amount_in"`
	AmountOut uint64 `json:"amount_out"`
	Timestamp int64  `json:"timestamp"`
}

// Swap executes one swap attempt on the router.
func (v *HTTPVenue) Swap(ctx context.Context, amountIn uint64, assetIn, assetOut, recipient string) (domain.SwapResult, error) {
	req := swapRequest{
		AmountIn:  amountIn,
		AssetIn:   assetIn,
		AssetOut:  assetOut,
		Recipient: recipient,
	}

	var resp swapResponse
	if err := v.post(ctx, "/swap", req, &resp); err != nil {
		return domain.SwapResult{}, fmt.Errorf("swap request failed: %w", err)
	}

	return domain.SwapResult{
		Success:   resp.Success,
		AmountIn:  resp.AmountIn,
		AmountOut: resp.AmountOut,
		Timestamp: time.Unix(resp.Timestamp, 0),
	}, nil
}

type stakeRequest struct {
	Amount      uint64 `json:"amount"`
	Beneficiary string `json:"beneficiary"`
}

type stakeResponse struct {
	Success bool `json:"success"`
}

// Stake deposits swap proceeds into the yield position.
func (v *HTTPVenue) Stake(ctx context.Context, amount uint64, beneficiary string) (bool, error) {
	req := stakeRequest{Amount: amount, Beneficiary: beneficiary}

	var resp stakeResponse
	if err := v.post(ctx, "/stake", req, &resp); err != nil {
		return false, fmt.Errorf("stake request failed: %w", err)
	}
	return resp.Success, nil
}

// post sends one JSON request, retrying transient failures.
func (v *HTTPVenue) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	backoff := retry.WithMaxRetries(v.cfg.MaxRetries, retry.NewExponential(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := v.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("venue call: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("venue returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("venue returned %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response: %w", err))
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
