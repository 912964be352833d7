package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"folio-chat/contract"
	"folio-chat/domain"
	"folio-chat/domain/event"
	"folio-chat/errors"

	"github.com/redis/go-redis/v9"
)

// RedisEmitter delivers locally when it can and publishes otherwise.
// The instance owning the connection picks the envelope up with its Relay.
type RedisEmitter struct {
	log     *slog.Logger
	client  redis.UniversalClient
	channel string
	local   contract.LocalDeliverer
}

func NewRedisEmitter(log *slog.Logger, client redis.UniversalClient, channel string, local contract.LocalDeliverer) *RedisEmitter {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisEmitter{log: log, client: client, channel: channel, local: local}
}

func (e *RedisEmitter) Emit(ctx context.Context, connID domain.ConnectionID, evt event.Event) error {
	delivered, err := e.local.Deliver(ctx, connID, evt)
	if delivered {
		return err
	}
	payload, err := Encode(connID, evt)
	if err != nil {
		return err
	}
	if err = e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: publish: %v", errors.ErrRegistryUnavailable, err)
	}
	e.log.Debug("Event published for remote connection", "conn_id", connID, "event", evt.Name())
	return nil
}
