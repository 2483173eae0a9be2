package notify

import (
	"context"
	"log/slog"
)

// Event names emitted by the engine. Notifications are observable side
// effects only; delivery is best effort and never part of correctness.
const (
	EventVaultCreated   = "VaultCreated"
	EventVaultCancelled = "VaultCancelled"
	EventVaultDeleted   = "VaultDeleted"
	EventDCAExecuted    = "DCAExecuted"
	EventDCAFailed      = "DCAFailed"
	EventCompoundFailed = "CompoundFailed"
	EventEngineStarted  = "EngineStarted"
)

// Notifier publishes engine lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event string, attrs ...any)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: slog.Default().With("component", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, event string, attrs ...any) {
	n.log.Info(event, attrs...)
}
