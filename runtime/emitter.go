package runtime

import (
	"context"
	"log/slog"
	"time"

	"folio-chat/domain"
	"folio-chat/domain/event"
	"folio-chat/observability"
)

// LocalEmitter delivers events to connections attached to this instance.
// Emitting to a connection that is not local is a silent no-op: for a single
// process that connection is gone; multi-instance deployments wrap it with the
// Redis emitter.
type LocalEmitter struct {
	log             *slog.Logger
	hub             *Hub
	deliveryTimeout time.Duration
	metrics         *observability.Metrics
}

func NewLocalEmitter(log *slog.Logger, hub *Hub, deliveryTimeout time.Duration, metrics *observability.Metrics) *LocalEmitter {
	return &LocalEmitter{log: log, hub: hub, deliveryTimeout: deliveryTimeout, metrics: metrics}
}

func (e *LocalEmitter) Emit(ctx context.Context, connID domain.ConnectionID, evt event.Event) error {
	_, err := e.Deliver(ctx, connID, evt)
	return err
}

// Deliver reports whether connID is attached here, and the sink error if any.
func (e *LocalEmitter) Deliver(ctx context.Context, connID domain.ConnectionID, evt event.Event) (bool, error) {
	sink, ok := e.hub.Sink(connID)
	if !ok {
		return false, nil
	}
	if e.deliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.deliveryTimeout)
		defer cancel()
	}
	if err := sink.Consume(ctx, evt); err != nil {
		e.metrics.Delivery(evt.Name(), "failed")
		e.log.Warn("Event delivery failed", "conn_id", connID, "event", evt.Name(), "error", err)
		return true, err
	}
	e.metrics.Delivery(evt.Name(), "delivered")
	return true, nil
}
