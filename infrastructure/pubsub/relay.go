package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"folio-chat/contract"

	"github.com/redis/go-redis/v9"
)

// Relay subscribes to the event channel and hands every envelope addressed to
// a local connection to the LocalDeliverer. Envelopes for other instances are ignored.
type Relay struct {
	log     *slog.Logger
	client  redis.UniversalClient
	channel string
	local   contract.LocalDeliverer
}

func NewRelay(log *slog.Logger, client redis.UniversalClient, channel string, local contract.LocalDeliverer) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{log: log, client: client, channel: channel, local: local}
}

// Run returns an error when the subscription breaks so the supervisor restarts it.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	// Wait for the subscription confirmation before reading
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	r.log.Info("Relay subscribed", "channel", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Context done, stopping relay")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", r.channel)
			}
			r.relay(ctx, msg.Payload)
		}
	}
}

func (r *Relay) relay(ctx context.Context, payload string) {
	connID, evt, err := Decode([]byte(payload))
	if err != nil {
		r.log.Warn("Dropping malformed envelope", "error", err)
		return
	}
	delivered, err := r.local.Deliver(ctx, connID, evt)
	if err != nil {
		r.log.Warn("Relayed delivery failed", "conn_id", connID, "event", evt.Name(), "error", err)
		return
	}
	if delivered {
		r.log.Debug("Relayed event delivered", "conn_id", connID, "event", evt.Name())
	}
}
