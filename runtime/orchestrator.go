// Package runtime holds the presence-and-delivery engine: the connection
// registry, the delivery coordinator and the ephemeral signaler.
// It routes inbound commands and owns the supervised background workers,
// without knowing anything about the wire format.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    contract.IRegistry
	coordinator contract.IDeliveryCoordinator
	signaler    contract.ISignaler
	monitoring  *observability.MonitoringManager
	mirror      contract.IPresenceMirror
	mirrorEvery time.Duration
	pushTimeout time.Duration
	reportEvery time.Duration
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	coordinator contract.IDeliveryCoordinator, signaler contract.ISignaler,
	monitoring *observability.MonitoringManager, pushTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		coordinator: coordinator,
		signaler:    signaler,
		monitoring:  monitoring,
		pushTimeout: pushTimeout,
	}
}

// WithPresenceMirror must be called before Start.
// The mirror is republished every refresh even when nobody connects or leaves.
func (o *Orchestrator) WithPresenceMirror(mirror contract.IPresenceMirror, refresh time.Duration) *Orchestrator {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mirror = mirror
	o.mirrorEvery = refresh
	return o
}

// WithReporter logs the relay counters every interval, it must be called before Start.
func (o *Orchestrator) WithReporter(interval time.Duration) *Orchestrator {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reportEvery = interval
	return o
}

// Dispatch routes a decoded command issued by conn.
// Errors are meant for the issuing connection only.
func (o *Orchestrator) Dispatch(ctx context.Context, conn contract.Connection, cmd domain.Command) error {
	switch c := cmd.(type) {
	case domain.RegisterCommand:
		if err := domain.Validate(c); err != nil {
			return err
		}
		o.registry.Register(c.UserID, conn)
		o.monitoring.IncrRegistrations()
		o.log.Info("User registered", "user_id", c.UserID, "connection_id", conn.ID())
		return nil
	case domain.SendMessageCommand:
		_, err := o.coordinator.Send(ctx, c)
		return err
	case domain.TypingCommand:
		if err := domain.Validate(c); err != nil {
			return err
		}
		o.signaler.RelayTyping(ctx, c.From, c.To)
		return nil
	case domain.MarkDeliveredCommand:
		return o.coordinator.MarkDelivered(ctx, c)
	case domain.MarkReadCommand:
		return o.coordinator.MarkRead(ctx, c)
	default:
		return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, cmd)
	}
}

// Disconnect is the transport close callback.
// It is a no-op for a connection that was superseded or never registered.
func (o *Orchestrator) Disconnect(conn contract.Connection) {
	userID, ok := o.registry.Unregister(conn)
	if !ok {
		return
	}
	o.monitoring.IncrDisconnections()
	o.log.Info("User disconnected", "user_id", userID, "connection_id", conn.ID())
}

// Start registers the background workers and blocks until the supervisor stops.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	presence := workers.NewPresenceBroadcaster(o.log, o.registry, o.monitoring, o.pushTimeout)
	if o.mirror != nil {
		presence.WithMirror(o.mirror, o.mirrorEvery)
	}
	o.supervisor.Add(presence)
	if o.monitoring != nil {
		o.supervisor.Add(o.monitoring)
		if o.reportEvery > 0 {
			o.supervisor.Add(workers.NewReporterWorker(o.log, o.monitoring, o.reportEvery))
		}
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
