// Package notify delivers outbound event notifications.
// Delivery failures are logged and never propagate into request handling.
package notify

import (
	"context"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/config"
)

// Event is the notification payload
type Event struct {
	// Event is the event name, e.g. refund.recorded
	Event config.NotificationEvent `json:"event"`
	// TesterUUID identifies the tester the event belongs to
	TesterUUID string `json:"testerUuid"`
	// Purchase is the purchase id the event refers to
	Purchase string `json:"purchase"`
	// Amount is the monetary amount involved, when applicable
	Amount float64 `json:"amount,omitempty"`
	// OccurredAt is when the event happened
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier delivers events to an external sink
type Notifier interface {
	// Notify delivers the event. Implementations decide whether the
	// event type is enabled.
	Notify(ctx context.Context, event *Event)
}

// FromConfig builds the notifier selected by the configuration.
// Returns the no-op notifier when notifications are disabled.
func FromConfig(cfg *config.NotificationConfig) Notifier {
	if cfg == nil || !cfg.IsEnabled() {
		return Noop{}
	}
	return NewWebhookNotifier(cfg)
}

// Noop is the disabled notifier
type Noop struct{}

// Notify discards the event
func (Noop) Notify(context.Context, *Event) {}
