package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a vault.
type Status uint8

const (
	StatusActive Status = iota
	StatusPaused
	StatusCompleted
	StatusInsufficientBalance
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusInsufficientBalance:
		return "insufficient_balance"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseStatus validates a persisted status code. Codes outside the known set
// indicate a corrupted record and are never coerced to a default.
func ParseStatus(code uint8) (Status, error) {
	s := Status(code)
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusInsufficientBalance:
		return s, nil
	}
	return 0, fmt.Errorf("%w: unknown status code %d", ErrCorruptRecord, code)
}

// VaultConfig holds the recurring-swap intent. Immutable after creation.
type VaultConfig struct {
	Owner        string
	BaseAsset    string
	TargetAsset  string
	Interval     time.Duration
	Amount       uint64
	AutoCompound bool
}

// Validate checks the creation invariants. Identity fields must be wire-safe
// because the persisted record format is comma-delimited.
func (c VaultConfig) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if c.BaseAsset == "" || c.TargetAsset == "" {
		return fmt.Errorf("base and target assets are required")
	}
	if c.BaseAsset == c.TargetAsset {
		return fmt.Errorf("base asset must differ from target asset")
	}
	if c.Interval < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %v", c.Interval)
	}
	if c.Interval%time.Second != 0 {
		return fmt.Errorf("interval must be whole seconds, got %v", c.Interval)
	}
	if c.Amount == 0 {
		return fmt.Errorf("amount must be positive")
	}
	for _, field := range []string{c.Owner, c.BaseAsset, c.TargetAsset} {
		if strings.Contains(field, ",") {
			return fmt.Errorf("identity field %q contains a reserved delimiter", field)
		}
	}
	return nil
}

// VaultRecord wraps a VaultConfig plus the mutable scheduling state. Owned
// exclusively by the lifecycle engine; storage only moves encoded bytes.
type VaultRecord struct {
	Config          VaultConfig
	NextExecution   time.Time
	TotalExecutions uint64
	Status          Status
	CreatedAt       time.Time
}

// Due reports whether the vault has reached its next execution time.
func (r *VaultRecord) Due(now time.Time) bool {
	return !now.Before(r.NextExecution)
}

// SwapResult is the outcome of one swap attempt. Transient, never persisted.
type SwapResult struct {
	Success   bool
	AmountIn  uint64
	AmountOut uint64
	Timestamp time.Time
}
