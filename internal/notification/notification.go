package notification

import (
	"context"
	"log/slog"
)

const (
	// KindLedgerDrift flags a confirmed upstream charge whose local record
	// failed to persist. These require reconciliation, not a retry.
	KindLedgerDrift = "ledger_drift"
	// KindSyncFailure indicates a reconciliation sweep could not refresh a card.
	KindSyncFailure = "sync_failure"
)

// Message describes an operational alert payload.
type Message struct {
	Kind   string
	CardID string
	Body   string
}

// Notifier delivers operational alerts to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes alerts to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger. Drift alerts log at
// Error level so they surface in paging pipelines.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	if message.Kind == KindLedgerDrift {
		n.logger.Error("alert", "kind", message.Kind, "card_id", message.CardID, "body", message.Body)
		return nil
	}
	n.logger.Warn("alert", "kind", message.Kind, "card_id", message.CardID, "body", message.Body)
	return nil
}
