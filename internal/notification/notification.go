package notification

import (
	"context"
	"log/slog"

	"go.uber.org/multierr"
)

// Event names published to downstream consumers.
const (
	EventRechargeSubmitted = "recharge.submitted"
	EventRechargeApproved  = "recharge.approved"
	EventRechargeRejected  = "recharge.rejected"
	EventWalletCredited    = "wallet.credited"
	EventWalletDebited     = "wallet.debited"
	EventProviderRated     = "provider.rated"
)

// Message describes a notification payload addressed to one account.
type Message struct {
	Event     string         `json:"event"`
	AccountID string         `json:"account_id"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "event", message.Event, "account_id", message.AccountID, "payload", message.Payload)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send delivers to all targets even when some fail.
func (m Multi) Send(ctx context.Context, message Message) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, message))
	}
	return err
}
