package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrCorruptRecord is returned when a stored record cannot be decoded.
// Corruption is a fatal condition for the invocation that hits it; it is
// never silently repaired.
var ErrCorruptRecord = errors.New("corrupt vault record")

// recordFields is the fixed field count of the persisted wire format:
// owner, baseAsset, targetAsset, interval, amount, autoCompound,
// nextExecution, totalExecutions, statusCode, createdAt.
const recordFields = 10

// EncodeRecord renders a record in the persisted wire format, a fixed-order
// comma-delimited field list. Timestamps are unix seconds, the interval is
// integer seconds and the auto-compound flag is 0/1.
func EncodeRecord(r *VaultRecord) []byte {
	compound := "0"
	if r.Config.AutoCompound {
		compound = "1"
	}
	fields := []string{
		r.Config.Owner,
		r.Config.BaseAsset,
		r.Config.TargetAsset,
		strconv.FormatInt(int64(r.Config.Interval/time.Second), 10),
		strconv.FormatUint(r.Config.Amount, 10),
		compound,
		strconv.FormatInt(r.NextExecution.Unix(), 10),
		strconv.FormatUint(r.TotalExecutions, 10),
		strconv.Itoa(int(r.Status)),
		strconv.FormatInt(r.CreatedAt.Unix(), 10),
	}
	return []byte(strings.Join(fields, ","))
}

// DecodeRecord parses the wire format produced by EncodeRecord. Every field
// is validated; a malformed field or an unknown status code yields
// ErrCorruptRecord rather than a defaulted record.
func DecodeRecord(data []byte) (*VaultRecord, error) {
	parts := strings.Split(string(data), ",")
	if len(parts) != recordFields {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrCorruptRecord, recordFields, len(parts))
	}

	interval, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: interval %q: %v", ErrCorruptRecord, parts[3], err)
	}
	amount, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrCorruptRecord, parts[4], err)
	}
	var compound bool
	switch parts[5] {
	case "0":
		compound = false
	case "1":
		compound = true
	default:
		return nil, fmt.Errorf("%w: ambiguous auto-compound flag %q", ErrCorruptRecord, parts[5])
	}
	nextExecution, err := strconv.ParseInt(parts[6], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: next execution %q: %v", ErrCorruptRecord, parts[6], err)
	}
	totalExecutions, err := strconv.ParseUint(parts[7], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: total executions %q: %v", ErrCorruptRecord, parts[7], err)
	}
	code, err := strconv.ParseUint(parts[8], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: status code %q: %v", ErrCorruptRecord, parts[8], err)
	}
	status, err := ParseStatus(uint8(code))
	if err != nil {
		return nil, err
	}
	createdAt, err := strconv.ParseInt(parts[9], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: created at %q: %v", ErrCorruptRecord, parts[9], err)
	}

	return &VaultRecord{
		Config: VaultConfig{
			Owner:        parts[0],
			BaseAsset:    parts[1],
			TargetAsset:  parts[2],
			Interval:     time.Duration(interval) * time.Second,
			Amount:       amount,
			AutoCompound: compound,
		},
		NextExecution:   time.Unix(nextExecution, 0).UTC(),
		TotalExecutions: totalExecutions,
		Status:          status,
		CreatedAt:       time.Unix(createdAt, 0).UTC(),
	}, nil
}
