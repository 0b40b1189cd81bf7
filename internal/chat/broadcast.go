package chat

import (
	"log/slog"
	"time"
)

// Broadcaster fans one message out to a Registry snapshot. Delivery is
// best-effort and independent per recipient: a failed write is logged and
// counted, the remaining recipients still get the message, and the failed
// recipient stays registered. Removal belongs to that session's own
// lifecycle, not to delivery.
type Broadcaster struct {
	reg    *Registry
	logger *slog.Logger
}

func NewBroadcaster(reg *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{reg: reg, logger: logger}
}

func (b *Broadcaster) Broadcast(text string) {
	b.BroadcastExcept(text, "")
}

// BroadcastExcept delivers text to every member except excludeID. The
// exclusion is a capability of the contract; the chat paths pass none, so
// senders see their own lines, matching the shipped behavior.
func (b *Broadcaster) BroadcastExcept(text, excludeID string) {
	start := time.Now()
	for _, s := range b.reg.Snapshot() {
		if excludeID != "" && s.id == excludeID {
			continue
		}
		if err := s.transport.SendLine(text); err != nil {
			DeliveryFailures.Inc()
			b.logger.Warn("delivery failed", "session", s.id, "name", s.name, "error", err)
		}
	}
	BroadcastDuration.Observe(time.Since(start).Seconds())
}
