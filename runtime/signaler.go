package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// Signaler relays events that carry no state and need no persistence.
// A signal for an offline user is dropped, which is an expected outcome.
type Signaler struct {
	log         *slog.Logger
	registry    contract.IRegistry
	monitoring  *observability.MonitoringManager
	pushTimeout time.Duration
}

func NewSignaler(log *slog.Logger, registry contract.IRegistry,
	monitoring *observability.MonitoringManager, pushTimeout time.Duration) *Signaler {
	return &Signaler{log: log, registry: registry, monitoring: monitoring, pushTimeout: pushTimeout}
}

func (s *Signaler) RelayTyping(ctx context.Context, from, to domain.UserID) {
	if s.relay(ctx, to, event.Typing{From: from}) {
		s.monitoring.IncrTypingRelayed()
	}
}

// RelaySocialEvent pushes a notification on behalf of the friends collaborator.
func (s *Signaler) RelaySocialEvent(ctx context.Context, target domain.UserID, e event.DomainEvent) {
	s.relay(ctx, target, e)
}

func (s *Signaler) relay(ctx context.Context, target domain.UserID, e event.DomainEvent) bool {
	conn, ok := s.registry.Lookup(target)
	if !ok {
		s.monitoring.IncrSignalsDropped()
		return false
	}
	pushCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()
	if err := conn.Consume(pushCtx, e); err != nil {
		s.monitoring.IncrSignalsDropped()
		s.log.Debug("Signal dropped", "event", e.EventName(), "user_id", target, "error", err)
		return false
	}
	return true
}
